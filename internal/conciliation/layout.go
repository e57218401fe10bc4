package conciliation

import "strings"

// LayoutVersion tags which of the two known marketplace column layouts a
// conciliation file uses. The marketplace changed its export format over
// time; both layouts remain in the wild.
type LayoutVersion string

const (
	LayoutLegacy LayoutVersion = "legacy"
	LayoutV3     LayoutVersion = "v3"
)

// FieldLayoutVersion is the canonical field that records the detected layout
// on every persisted row. It is always the last output column.
const FieldLayoutVersion = "layout_version"

// ColumnMapping maps one source header (lower-cased, trimmed) to its
// canonical field name.
type ColumnMapping struct {
	Source    string
	Canonical string
}

// LayoutConfig holds the immutable per-layout column mappings and the marker
// columns used for detection. Build it once at startup and pass it in;
// nothing mutates it afterwards.
type LayoutConfig struct {
	legacy    []ColumnMapping
	v3        []ColumnMapping
	v3Markers []string
	extras    []string
}

// NewLayoutConfig returns the mapping registry for the two known layouts.
// The v3 mapping is the legacy mapping plus the balance id column; the three
// payment columns are tolerated on legacy exports that already carried them.
func NewLayoutConfig() *LayoutConfig {
	legacy := []ColumnMapping{
		{"competencia", "competence_date"},
		{"data_fato_gerador", "event_date"},
		{"fato_gerador", "event_trigger"},
		{"tipo_lancamento", "transaction_type"},
		{"descricao_lancamento", "transaction_description"},
		{"valor", "gross_value"},
		{"base_calculo", "calculation_base_value"},
		{"percentual_taxa", "tax_percentage"},
		{"pedido_associado_ifood", "ifood_order_id"},
		{"pedido_associado_ifood_curto", "ifood_order_id_short"},
		{"pedido_associado_externo", "external_order_id"},
		{"motivo_cancelamento", "cancellation_reason"},
		{"descricao_ocorrencia", "occurrence_description"},
		{"data_criacao_pedido_associado", "order_creation_date"},
		{"data_repasse_esperada", "expected_payment_date"},
		{"valor_transacao", "transaction_value"},
		{"loja_id", "store_id"},
		{"loja_id_curto", "store_id_short"},
		{"loja_id_externo", "store_id_external"},
		{"cnpj", "cnpj"},
		{"titulo", "title"},
		{"data_faturamento", "billing_date"},
		{"data_apuracao_inicio", "settlement_start_date"},
		{"data_apuracao_fim", "settlement_end_date"},
		{"valor_cesta_inicial", "initial_basket_value"},
		{"valor_cesta_final", "final_basket_value"},
		{"responsavel_transacao", "transaction_responsible"},
		{"canal_vendas", "sales_channel"},
		{"impacto_no_repasse", "payment_impact"},
		{"parcela_pagamento", "payment_installment"},
		{"pedido_detalhes", "order_details"},
		{"metodo_pagamento", "payment_method"},
		{"bandeira_pagamento", "payment_brand"},
	}

	v3 := make([]ColumnMapping, len(legacy), len(legacy)+1)
	copy(v3, legacy)
	v3 = append(v3, ColumnMapping{"id_saldo", "balance_id"})

	return &LayoutConfig{
		legacy:    legacy,
		v3:        v3,
		v3Markers: []string{"pedido_detalhes", "id_saldo", "metodo_pagamento", "bandeira_pagamento"},
		// Canonical fields every persisted record must carry even when the
		// source file predates them.
		extras: []string{"order_details", "payment_method", "payment_brand", "balance_id"},
	}
}

// Mapping returns the ordered column mapping for the given layout.
func (c *LayoutConfig) Mapping(v LayoutVersion) []ColumnMapping {
	if v == LayoutV3 {
		return c.v3
	}
	return c.legacy
}

// FinalColumns returns the fixed output column order for the given layout:
// mapping-defined canonical order, then schema extras not covered by the
// mapping, ending with layout_version.
func (c *LayoutConfig) FinalColumns(v LayoutVersion) []string {
	mapping := c.Mapping(v)
	seen := make(map[string]bool, len(mapping)+len(c.extras)+1)
	out := make([]string, 0, len(mapping)+len(c.extras)+1)
	for _, m := range mapping {
		if !seen[m.Canonical] {
			seen[m.Canonical] = true
			out = append(out, m.Canonical)
		}
	}
	for _, extra := range c.extras {
		if !seen[extra] {
			seen[extra] = true
			out = append(out, extra)
		}
	}
	return append(out, FieldLayoutVersion)
}

// NormalizeLayoutHint parses an optional caller-supplied layout hint.
// Anything other than the two recognized literals is treated as no hint.
func NormalizeLayoutHint(hint string) (LayoutVersion, bool) {
	switch strings.ToLower(strings.TrimSpace(hint)) {
	case string(LayoutLegacy):
		return LayoutLegacy, true
	case string(LayoutV3):
		return LayoutV3, true
	}
	return "", false
}

// Detect classifies the file layout from its normalized header set. An
// explicit hint wins unconditionally; otherwise the presence of every v3
// marker column classifies the file as v3, and legacy is the default.
func (c *LayoutConfig) Detect(columns map[string]bool, hint string) LayoutVersion {
	if v, ok := NormalizeLayoutHint(hint); ok {
		return v
	}
	for _, marker := range c.v3Markers {
		if !columns[marker] {
			return LayoutLegacy
		}
	}
	return LayoutV3
}
