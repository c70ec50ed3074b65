package combat

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, fs afero.Fs, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, "/scripts/damage.tengo", []byte(content), 0o644))
}

func TestScriptCalculator_Damage(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeScript(t, fs, `
damage := total
if crit {
	damage += 2
}
`)

	calc, err := NewScriptCalculator(fs, "/scripts/damage.tengo")
	require.NoError(t, err)

	dmg, err := calc.Damage(context.Background(), DamageInput{RolledTotal: 6, Crit: false})
	require.NoError(t, err)
	assert.Equal(t, 6, dmg)

	dmg, err = calc.Damage(context.Background(), DamageInput{RolledTotal: 6, Crit: true})
	require.NoError(t, err)
	assert.Equal(t, 8, dmg)
}

func TestScriptCalculator_UsesDamageType(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeScript(t, fs, `
damage := total
if damage_type == "cold" {
	damage = total * 2
}
`)

	calc, err := NewScriptCalculator(fs, "/scripts/damage.tengo")
	require.NoError(t, err)

	dmg, err := calc.Damage(context.Background(), DamageInput{RolledTotal: 4, DamageType: "cold"})
	require.NoError(t, err)
	assert.Equal(t, 8, dmg)
}

func TestScriptCalculator_MissingFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, err := NewScriptCalculator(fs, "/scripts/nope.tengo")
	assert.Error(t, err)
}

func TestScriptCalculator_BrokenScriptRejectedAtLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeScript(t, fs, `damage := total +`)

	_, err := NewScriptCalculator(fs, "/scripts/damage.tengo")
	assert.Error(t, err)
}

func TestScriptCalculator_NoDamageVariable(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeScript(t, fs, `x := total`)

	calc, err := NewScriptCalculator(fs, "/scripts/damage.tengo")
	require.NoError(t, err)

	_, err = calc.Damage(context.Background(), DamageInput{RolledTotal: 4})
	assert.Error(t, err)
}
