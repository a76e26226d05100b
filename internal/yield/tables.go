package yield

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed tables.yaml
var defaultTablesYAML []byte

// ErrInvalidTables is returned when a lookup table document fails validation.
var ErrInvalidTables = errors.New("invalid lookup tables")

// FactorTable maps a categorical value to a numeric factor.
type FactorTable map[string]float64

// Lookup returns the factor for key, or def when key is unknown.
// Keys are matched exactly first and then case-insensitively.
func (t FactorTable) Lookup(key string, def float64) float64 {
	if v, ok := t.find(key); ok {
		return v
	}
	return def
}

func (t FactorTable) find(key string) (float64, bool) {
	if v, ok := t[key]; ok {
		return v, true
	}
	key = strings.TrimSpace(key)
	for k, v := range t {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return 0, false
}

// Keys returns the table keys in sorted order.
func (t FactorTable) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FertilizerBonus configures the capped fertilizer quantity bonus.
type FertilizerBonus struct {
	ReferenceQuantity float64 `yaml:"reference_quantity"`
	Rate              float64 `yaml:"rate"`
	Cap               float64 `yaml:"cap"`
}

// IdealConditions holds the reference farm the recommendation rules compare against.
type IdealConditions struct {
	SoilType              string  `yaml:"soil_type"`
	Terrain               string  `yaml:"terrain"`
	Irrigation            string  `yaml:"irrigation"`
	FertilizerType        string  `yaml:"fertilizer_type"`
	FertilizerQuantity    float64 `yaml:"fertilizer_quantity"`
	MinFertilizerQuantity float64 `yaml:"min_fertilizer_quantity"`
	SeedType              string  `yaml:"seed_type"`
	PreviousCrop          string  `yaml:"previous_crop"`
	RotationPenaltyCrop   string  `yaml:"rotation_penalty_crop"`
}

// CatalogEntry is a recommendation template.
type CatalogEntry struct {
	Description       string     `yaml:"description"`
	Impact            ImpactTier `yaml:"impact"`
	PotentialIncrease string     `yaml:"potential_increase"`
	Investment        string     `yaml:"investment"`
	Timeline          string     `yaml:"timeline"`
}

// ScoreTable maps categorical values to 0-100 condition scores.
type ScoreTable struct {
	Default float64     `yaml:"default"`
	Values  FactorTable `yaml:"values"`
}

// Score returns the score for key or the table default.
func (s ScoreTable) Score(key string) float64 {
	return s.Values.Lookup(key, s.Default)
}

// ScoreTables groups the per-dimension condition score tables.
type ScoreTables struct {
	Soil         ScoreTable `yaml:"soil"`
	Irrigation   ScoreTable `yaml:"irrigation"`
	Terrain      ScoreTable `yaml:"terrain"`
	Fertilizer   ScoreTable `yaml:"fertilizer"`
	Seed         ScoreTable `yaml:"seed"`
	CropRotation ScoreTable `yaml:"crop_rotation"`
}

// Recommendation catalog keys.
const (
	RecSoilImprovement        = "soil_improvement"
	RecIrrigationUpgrade      = "irrigation_upgrade"
	RecHybridSeeds            = "hybrid_seeds"
	RecFertilizerOptimization = "fertilizer_optimization"
	RecCropRotation           = "crop_rotation"
	RecExtensionServices      = "extension_services"
	RecPrecisionAgriculture   = "precision_agriculture"
)

var requiredCatalogKeys = []string{
	RecSoilImprovement,
	RecIrrigationUpgrade,
	RecHybridSeeds,
	RecFertilizerOptimization,
	RecCropRotation,
	RecExtensionServices,
	RecPrecisionAgriculture,
}

// Tables is the immutable reference data used by the scoring engine.
// It is built once at startup and shared by pointer; callers must not mutate it.
type Tables struct {
	TheoreticalMaxYield float64         `yaml:"theoretical_max_yield"`
	PricePerTon         float64         `yaml:"price_per_ton"`
	DefaultBaseYield    float64         `yaml:"default_base_yield"`
	FertilizerBonus     FertilizerBonus `yaml:"fertilizer_bonus"`
	Ideal               IdealConditions `yaml:"ideal"`

	SoilBaseYields          FactorTable `yaml:"soil_base_yields"`
	TerrainMultipliers      FactorTable `yaml:"terrain_multipliers"`
	IrrigationMultipliers   FactorTable `yaml:"irrigation_multipliers"`
	FertilizerMultipliers   FactorTable `yaml:"fertilizer_multipliers"`
	SeedMultipliers         FactorTable `yaml:"seed_multipliers"`
	PreviousCropMultipliers FactorTable `yaml:"previous_crop_multipliers"`

	TypicalFertilizerQuantities FactorTable `yaml:"typical_fertilizer_quantities"`

	Recommendations map[string]CatalogEntry `yaml:"recommendations"`
	ConditionScores ScoreTables             `yaml:"condition_scores"`
}

// DefaultTables returns the embedded reference tables.
func DefaultTables() (*Tables, error) {
	return ParseTables(defaultTablesYAML)
}

// ParseTables decodes and validates a lookup table document.
func ParseTables(data []byte) (*Tables, error) {
	t := &Tables{}
	if err := yaml.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("parsing tables: %w", err)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// LoadTables reads a table override file on top of the embedded defaults.
// An empty path returns the defaults.
//
// The file is merged, not substituted. Scalars and nested sections given in
// the file replace their defaults field by field. Factor and score tables are
// merged per category, so a file can change or add a category but cannot
// remove one. A recommendation template named in the file replaces the whole
// default template of that key.
func LoadTables(path string) (*Tables, error) {
	if path == "" {
		return DefaultTables()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tables %s: %w", path, err)
	}

	t := &Tables{}
	if err := yaml.Unmarshal(defaultTablesYAML, t); err != nil {
		return nil, fmt.Errorf("parsing default tables: %w", err)
	}
	if err := yaml.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("parsing tables %s: %w", path, err)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tables) validate() error {
	var errs []error
	if t.TheoreticalMaxYield <= 0 {
		errs = append(errs, fmt.Errorf("theoretical_max_yield must be positive"))
	}
	if t.PricePerTon < 0 {
		errs = append(errs, fmt.Errorf("price_per_ton must not be negative"))
	}
	if t.DefaultBaseYield <= 0 {
		errs = append(errs, fmt.Errorf("default_base_yield must be positive"))
	}
	if t.FertilizerBonus.ReferenceQuantity <= 0 {
		errs = append(errs, fmt.Errorf("fertilizer_bonus.reference_quantity must be positive"))
	}
	if t.FertilizerBonus.Cap < 0 || t.FertilizerBonus.Rate < 0 {
		errs = append(errs, fmt.Errorf("fertilizer_bonus rate and cap must not be negative"))
	}
	if len(t.SoilBaseYields) == 0 {
		errs = append(errs, fmt.Errorf("soil_base_yields must not be empty"))
	}

	factors := map[string]FactorTable{
		"soil_base_yields":          t.SoilBaseYields,
		"terrain_multipliers":       t.TerrainMultipliers,
		"irrigation_multipliers":    t.IrrigationMultipliers,
		"fertilizer_multipliers":    t.FertilizerMultipliers,
		"seed_multipliers":          t.SeedMultipliers,
		"previous_crop_multipliers": t.PreviousCropMultipliers,
	}
	for _, name := range sortedNames(factors) {
		for k, v := range factors[name] {
			if v <= 0 {
				errs = append(errs, fmt.Errorf("%s.%s must be positive", name, k))
			}
		}
	}

	for _, key := range requiredCatalogKeys {
		if entry, ok := t.Recommendations[key]; !ok || entry.Description == "" {
			errs = append(errs, fmt.Errorf("recommendations.%s is required", key))
		}
	}

	if t.Ideal.SoilType == "" || t.Ideal.Irrigation == "" || t.Ideal.FertilizerType == "" || t.Ideal.SeedType == "" {
		errs = append(errs, fmt.Errorf("ideal conditions are incomplete"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidTables, errors.Join(errs...))
	}
	return nil
}

func sortedNames(m map[string]FactorTable) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// TypicalFertilizerQuantity returns the usual application rate in kg/ha for
// a fertilizer type, and false when the type is unknown.
func (t *Tables) TypicalFertilizerQuantity(fertilizerType string) (float64, bool) {
	return t.TypicalFertilizerQuantities.find(fertilizerType)
}

// Options lists the categorical values accepted by the engine.
type Options struct {
	SoilTypes       []string
	Terrains        []string
	IrrigationTypes []string
	FertilizerTypes []string
	SeedTypes       []string
	PreviousCrops   []string
}

// Options returns the known categorical values, sorted.
func (t *Tables) Options() Options {
	return Options{
		SoilTypes:       t.SoilBaseYields.Keys(),
		Terrains:        t.TerrainMultipliers.Keys(),
		IrrigationTypes: t.IrrigationMultipliers.Keys(),
		FertilizerTypes: t.FertilizerMultipliers.Keys(),
		SeedTypes:       t.SeedMultipliers.Keys(),
		PreviousCrops:   t.PreviousCropMultipliers.Keys(),
	}
}
