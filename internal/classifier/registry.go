package classifier

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Indicator is one weighted signal token for an industry.
type Indicator struct {
	Token  string  `yaml:"token" json:"token"`
	Weight float64 `yaml:"weight" json:"weight"`
}

// IndustryProfile holds everything the classifier knows about one industry:
// weighted indicators, subtype keyword groups, and the analyses worth
// suggesting when the industry is detected.
type IndustryProfile struct {
	Indicators        []Indicator         `yaml:"indicators" json:"indicators"`
	Subtypes          map[string][]string `yaml:"subtypes,omitempty" json:"subtypes,omitempty"`
	SuggestedAnalyses []string            `yaml:"suggested_analyses,omitempty" json:"suggested_analyses,omitempty"`
}

// Registry maps industry name to its profile. The registry is loaded once at
// startup and treated as immutable; only indicator weights change afterwards,
// and only through the classifier's reinforcement queue.
type Registry map[string]IndustryProfile

// LoadRegistryFromFile reads a YAML registry override from the given path.
func LoadRegistryFromFile(path string) (Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "classifier: read registry file")
	}

	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, eris.Wrap(err, "classifier: unmarshal registry")
	}
	if len(reg) == 0 {
		return nil, eris.Errorf("classifier: registry file %s defines no industries", path)
	}
	for name, profile := range reg {
		if len(profile.Indicators) == 0 {
			return nil, eris.Errorf("classifier: industry %q has no indicators", name)
		}
	}
	return reg, nil
}

// DefaultRegistry returns the built-in industry registry.
func DefaultRegistry() Registry {
	return Registry{
		"retail": {
			Indicators: []Indicator{
				{Token: "sale", Weight: 1.8},
				{Token: "store", Weight: 1.6},
				{Token: "inventory", Weight: 1.4},
				{Token: "product", Weight: 0.5},
				{Token: "pos", Weight: 0.4},
			},
			Subtypes: map[string][]string{
				"physical_retail": {"store", "location", "pos"},
				"online_retail":   {"website", "ecommerce", "online", "shipping"},
				"hybrid":          {"omnichannel"},
			},
			SuggestedAnalyses: []string{
				"sales_trend", "customer_segmentation", "inventory_optimization",
				"seasonal_analysis", "product_performance",
			},
		},
		"saas": {
			Indicators: []Indicator{
				{Token: "subscription", Weight: 1.6},
				{Token: "license", Weight: 1.4},
				{Token: "usage", Weight: 1.3},
				{Token: "api", Weight: 1.2},
				{Token: "churn", Weight: 1.1},
				{Token: "mrr", Weight: 1.0},
			},
			Subtypes: map[string][]string{
				"b2b_saas": {"enterprise", "business", "b2b"},
				"b2c_saas": {"consumer", "individual", "b2c"},
				"platform": {"marketplace", "platform", "api"},
			},
			SuggestedAnalyses: []string{
				"churn_analysis", "mrr_growth", "customer_acquisition_cost",
				"lifetime_value", "usage_analytics",
			},
		},
		"b2b_services": {
			Indicators: []Indicator{
				{Token: "contract", Weight: 1.5},
				{Token: "consulting", Weight: 1.4},
				{Token: "project", Weight: 1.2},
				{Token: "client", Weight: 1.1},
				{Token: "engagement", Weight: 0.9},
			},
			Subtypes: map[string][]string{
				"consulting":        {"consulting", "advisory", "strategy"},
				"software_services": {"software", "implementation", "development"},
				"managed_services":  {"managed", "outsourcing", "support"},
			},
			SuggestedAnalyses: []string{
				"project_profitability", "client_retention", "contract_analysis",
				"service_utilization",
			},
		},
		"manufacturing": {
			Indicators: []Indicator{
				{Token: "production", Weight: 1.7},
				{Token: "supply", Weight: 1.5},
				{Token: "factory", Weight: 1.4},
				{Token: "material", Weight: 1.3},
				{Token: "assembly", Weight: 1.0},
			},
			Subtypes: map[string][]string{
				"discrete": {"assembly", "unit"},
				"process":  {"continuous", "chemical", "refining"},
				"batch":    {"batch", "lot"},
			},
			SuggestedAnalyses: []string{
				"production_efficiency", "quality_metrics", "supply_chain_optimization",
				"capacity_planning",
			},
		},
		"healthcare": {
			Indicators: []Indicator{
				{Token: "patient", Weight: 1.8},
				{Token: "clinical", Weight: 1.6},
				{Token: "treatment", Weight: 1.4},
				{Token: "prescription", Weight: 1.2},
				{Token: "hospital", Weight: 1.1},
			},
			Subtypes: map[string][]string{
				"hospital":       {"hospital", "clinic"},
				"pharmaceutical": {"pharma", "drug", "medication"},
				"medical_device": {"device", "equipment"},
			},
			SuggestedAnalyses: []string{
				"patient_outcomes", "treatment_effectiveness", "resource_utilization",
				"compliance_monitoring",
			},
		},
		"financial_services": {
			Indicators: []Indicator{
				{Token: "portfolio", Weight: 1.7},
				{Token: "trading", Weight: 1.6},
				{Token: "risk", Weight: 1.4},
				{Token: "account", Weight: 1.0},
				{Token: "loan", Weight: 1.0},
			},
			Subtypes: map[string][]string{
				"banking":    {"bank", "deposit", "loan"},
				"investment": {"investment", "portfolio", "asset"},
				"insurance":  {"insurance", "policy", "claim", "premium"},
			},
			SuggestedAnalyses: []string{
				"risk_analysis", "portfolio_performance", "fraud_detection",
				"regulatory_reporting",
			},
		},
		"hospitality": {
			Indicators: []Indicator{
				{Token: "reservation", Weight: 1.6},
				{Token: "occupancy", Weight: 1.5},
				{Token: "guest", Weight: 1.4},
				{Token: "booking", Weight: 1.3},
				{Token: "room", Weight: 1.0},
			},
			Subtypes: map[string][]string{
				"hotel":      {"hotel", "accommodation", "room"},
				"restaurant": {"restaurant", "dining"},
				"travel":     {"travel", "tourism", "vacation"},
			},
			SuggestedAnalyses: []string{
				"occupancy_optimization", "revenue_forecasting", "guest_satisfaction",
				"pricing_strategy",
			},
		},
	}
}

// generalAnalyses are suggested when no industry clears the threshold.
var generalAnalyses = []string{"general_analysis", "trend_analysis", "performance_metrics"}
