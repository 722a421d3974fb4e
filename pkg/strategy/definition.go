// Package strategy parses and validates external strategy definitions.
package strategy

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/tradercopilot/signal-engine/internal/types"
	"github.com/tradercopilot/signal-engine/pkg/errors"
)

// SchemaVersion is the strategy definition schema this engine understands.
// Definitions with a different major or minor version are rejected.
const SchemaVersion = "1.0.0"

// Definition is the on-disk form of a strategy. It wraps the strategy
// payload with a schema version so old engines refuse definitions they
// cannot interpret.
type Definition struct {
	SchemaVersion string         `yaml:"schema_version" json:"schema_version" jsonschema:"description=Definition schema version" validate:"required"`
	Strategy      types.Strategy `yaml:"strategy" json:"strategy" jsonschema:"description=Strategy payload" validate:"required"`
}

// GetDefinitionSchema returns the JSON schema for strategy definitions.
func GetDefinitionSchema() (string, error) {
	return ToJSONSchema(&Definition{}) //nolint:exhaustruct // Empty definition for schema generation
}

// Parse decodes a YAML or JSON strategy definition, checks its schema
// version against the engine and validates the payload.
func Parse(content []byte) (types.Strategy, error) {
	var def Definition
	if err := yaml.Unmarshal(content, &def); err != nil {
		return types.Strategy{}, errors.Wrap(errors.ErrCodeStrategyParseFailed, "failed to parse strategy definition", err)
	}

	if err := CheckSchemaCompatibility(SchemaVersion, def.SchemaVersion); err != nil {
		return types.Strategy{}, err
	}

	if err := Validate(def.Strategy); err != nil {
		return types.Strategy{}, err
	}

	return def.Strategy, nil
}

// Validate checks a strategy payload.
func Validate(strategy types.Strategy) error {
	validate := validator.New()
	if err := validate.Struct(strategy); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidStrategy, "invalid strategy definition", err)
	}

	for _, rule := range strategy.Rules {
		if !knownCondition(rule.Condition) {
			return errors.Newf(errors.ErrCodeInvalidRule, "unknown rule condition: %s", rule.Condition)
		}
	}

	return nil
}

func knownCondition(condition types.RuleCondition) bool {
	switch condition {
	case types.ConditionLiquiditySweep, types.ConditionOrderBlock,
		types.ConditionRSIOversold, types.ConditionRSIOverbought,
		types.ConditionAboveEMA, types.ConditionBelowEMA,
		types.ConditionTokyoSession, types.ConditionLondonSession,
		types.ConditionNewYorkSession:
		return true
	default:
		return false
	}
}

// CheckSchemaCompatibility checks if the engine schema version and a
// definition's schema version are compatible.
//
// Compatibility rules:
//   - If either version is "main" (development build), the check is skipped
//   - Major versions must match exactly
//   - Minor versions must match exactly
//   - Patch versions can differ
func CheckSchemaCompatibility(engineVersion, definitionVersion string) error {
	engineVersion = strings.TrimPrefix(engineVersion, "v")
	definitionVersion = strings.TrimPrefix(definitionVersion, "v")

	if engineVersion == "main" || definitionVersion == "main" {
		return nil
	}

	engineSemver, err := semver.NewVersion(engineVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid engine schema version '%s'", engineVersion)
	}

	defSemver, err := semver.NewVersion(definitionVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid definition schema version '%s'", definitionVersion)
	}

	if engineSemver.Major() != defSemver.Major() {
		return errors.Newf(errors.ErrCodeSchemaVersion, "major schema version mismatch: engine is %d.x.x but definition requires %d.x.x",
			engineSemver.Major(), defSemver.Major())
	}

	if engineSemver.Minor() != defSemver.Minor() {
		return errors.Newf(errors.ErrCodeSchemaVersion, "minor schema version mismatch: engine is %d.%d.x but definition requires %d.%d.x",
			engineSemver.Major(), engineSemver.Minor(),
			defSemver.Major(), defSemver.Minor())
	}

	return nil
}
