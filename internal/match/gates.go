package match

import (
	"strings"

	"github.com/pricescout/zap-scraper/internal/models"
	"github.com/pricescout/zap-scraper/internal/nomenclature"
	"github.com/pricescout/zap-scraper/internal/parser"
)

// Validator applies the two mandatory correctness gates and the weighted
// scoring to candidate names. It is pure: identical inputs always yield
// identical outputs.
type Validator struct {
	table *nomenclature.Table
	names *parser.NameParser
}

func NewValidator(table *nomenclature.Table) *Validator {
	return &Validator{
		table: table,
		names: parser.NewNameParser(table),
	}
}

// CheckGates runs both gates against a candidate name. Either gate failing
// disqualifies the candidate outright, regardless of score.
func (v *Validator) CheckGates(query models.ProductQuery, candidateName string) models.GateOutcome {
	cleaned := v.table.CleanName(candidateName)

	return models.GateOutcome{
		ModelGatePassed: v.modelGate(query, cleaned),
		TypeGatePassed:  v.typeGate(query, cleaned),
	}
}

// modelGate requires the candidate's model number to string-equal the
// target's exactly. No normalization, no partial credit. A target without a
// model number fails closed.
func (v *Validator) modelGate(query models.ProductQuery, cleaned string) bool {
	if query.ModelNumber == "" {
		return false
	}
	return v.names.ExtractModel(cleaned, query.ModelNumber) == query.ModelNumber
}

// typeGate is vacuously true unless the target carries an inverter-class
// token; then the candidate must carry one too. A missing inverter token
// means a physically different product.
func (v *Validator) typeGate(query models.ProductQuery, cleaned string) bool {
	targetHasInverter := false
	for _, token := range query.SeriesTokens {
		if v.table.InInverterClass(token) {
			targetHasInverter = true
			break
		}
	}
	if !targetHasInverter {
		return true
	}

	upper := strings.ToUpper(cleaned)
	for _, member := range v.table.InverterTokens() {
		if strings.Contains(upper, strings.ToUpper(member)) {
			return true
		}
	}
	return false
}
