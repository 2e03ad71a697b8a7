// pkg/config/registry.go
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Registry is the fixed inventory the scanner works from: which schemas to
// explore, which business tables get freshness tracking, which views must
// exist, and how the presentation layer groups tables. It is read-only after
// startup and injected everywhere, so tests can substitute a small one.
type Registry struct {
	// Schemas is the allow-list of schemas to explore, in scan order.
	Schemas []string `yaml:"schemas"`

	// PrimarySchema hosts the business tables; the domain-specific query
	// battery only runs when it is present on the server.
	PrimarySchema string `yaml:"primarySchema"`

	// BusinessTables are the tables whose last-update timestamps the scan
	// reports specially.
	BusinessTables []string `yaml:"businessTables"`

	// KnownViews are probed for existence and row count.
	KnownViews []string `yaml:"knownViews"`

	// Mapping table and flag column identifying enabled entities.
	MappingTable  string `yaml:"mappingTable"`
	EnabledColumn string `yaml:"enabledColumn"`
	EntityColumn  string `yaml:"entityColumn"`

	// Trigger-result table and its business columns for the per-country
	// outcome aggregate.
	TriggerTable         string `yaml:"triggerTable"`
	TriggerDateColumn    string `yaml:"triggerDateColumn"`
	TriggerOutcomeColumn string `yaml:"triggerOutcomeColumn"`

	// Categories group business tables for display, in presentation order.
	Categories []Category `yaml:"categories"`
}

// Category is a named group of business tables in the status report
type Category struct {
	Name   string   `yaml:"name"`
	Tables []string `yaml:"tables"`
}

// DefaultRegistry returns the built-in inventory for the IDB infrastructure.
func DefaultRegistry() *Registry {
	return &Registry{
		Schemas: []string{
			"idb", "rbp", "rtm_raw", "rtm_clean", "rtm_analytics", "caricom_other_data",
		},
		PrimarySchema: "idb",
		BusinessTables: []string{
			// mapping tables (static)
			"RBP_adm0_mapping",
			"RBP_adm1_mapping",
			// food security indicators
			"RBP_fcs",
			"RBP_fcs_adm0",
			"RBP_fcs_low_quality",
			"RBP_rcsi",
			"RBP_rcsi_adm0",
			"RBP_rcsi_low_quality",
			"RBP_ipc_adm0",
			"RBP_pou",
			// economic indicators
			"RBP_food_inflation",
			"RBP_currency_exchange",
			// conflict data
			"RBP_ACLED_conflict",
			// climate data
			"RBP_climate_anomaly",
			"RBP_rainfall_ndvi_seasonality",
			// natural hazards
			"RBP_ADAM_cyclon",
			"RBP_ADAM_earthquake",
			"RBP_ADAM_flood",
			"RBP_PDC_hazard",
			// population
			"RBP_population",
			"RBP_population_adm1",
			// migration
			"RBP_panama_darien_nationality",
			"RBP_panama_darien_agesex",
			"RBP_usa_encounters",
			// alerts
			"RBP_adm0_hml_alert",
			"RBP_adm1_hml_alert",
			// trigger system output
			"RBP_climate_alert",
			"RBP_conflict_alert",
			"RBP_economic_alert",
			"RBP_food_security_alert",
			"RBP_hazard_alert",
			"RBP_trigger_result",
			"RBP_IDB_tableau",
		},
		KnownViews: []string{
			"RBP_combined_prevalence_fs",
			"RBP_conflict_related_fatalities_30days",
			"RBP_protests_riots_30days",
			"RBP_combined_prevalence_fs_adm1",
		},
		MappingTable:         "RBP_adm0_mapping",
		EnabledColumn:        "enabled",
		EntityColumn:         "iso3",
		TriggerTable:         "RBP_trigger_result",
		TriggerDateColumn:    "date",
		TriggerOutcomeColumn: "trigger_outcome",
		Categories: []Category{
			{Name: "Food Security (RTM)", Tables: []string{"RBP_fcs", "RBP_fcs_adm0", "RBP_rcsi", "RBP_rcsi_adm0"}},
			{Name: "Alerts (Trigger Output)", Tables: []string{"RBP_climate_alert", "RBP_conflict_alert", "RBP_economic_alert", "RBP_food_security_alert", "RBP_hazard_alert", "RBP_trigger_result"}},
			{Name: "Conflict (ACLED)", Tables: []string{"RBP_ACLED_conflict"}},
			{Name: "Economic", Tables: []string{"RBP_food_inflation", "RBP_currency_exchange"}},
			{Name: "Climate", Tables: []string{"RBP_climate_anomaly", "RBP_rainfall_ndvi_seasonality"}},
			{Name: "Natural Hazards", Tables: []string{"RBP_ADAM_cyclon", "RBP_ADAM_earthquake", "RBP_ADAM_flood", "RBP_PDC_hazard"}},
			{Name: "HungerMap Alerts", Tables: []string{"RBP_adm0_hml_alert", "RBP_adm1_hml_alert"}},
			{Name: "Population", Tables: []string{"RBP_population", "RBP_population_adm1"}},
			{Name: "Migration", Tables: []string{"RBP_panama_darien_nationality", "RBP_panama_darien_agesex", "RBP_usa_encounters"}},
			{Name: "Food Security (External)", Tables: []string{"RBP_ipc_adm0", "RBP_pou"}},
			{Name: "Output/Export", Tables: []string{"RBP_IDB_tableau"}},
		},
	}
}

// LoadRegistry reads a registry from a yaml file. A missing path returns the
// built-in defaults.
func LoadRegistry(path string) (*Registry, error) {
	if path == "" {
		return DefaultRegistry(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry file: %w", err)
	}

	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry file: %w", err)
	}

	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Validate checks the registry for the fields the scanner cannot run without.
func (r *Registry) Validate() error {
	if len(r.Schemas) == 0 {
		return errors.New("registry: at least one schema is required")
	}
	if r.PrimarySchema == "" {
		return errors.New("registry: primarySchema is required")
	}
	for _, c := range r.Categories {
		if c.Name == "" {
			return errors.New("registry: category name is required")
		}
	}
	return nil
}
