// Package selector implements the shortest-legal-recipe choice described
// in spec.md §4.3: given a mnemonic, an operand list, and the active
// mode, filter the catalog to legal recipes and return the smallest.
package selector

import (
	"fmt"

	"github.com/gabi-250/ras/internal/catalog"
	"github.com/gabi-250/ras/internal/mnemonic"
	"github.com/gabi-250/ras/internal/mode"
	"github.com/gabi-250/ras/internal/operand"
)

// MissingInstructionReprError reports that no catalog recipe matches a
// mnemonic's operands in the active mode.
type MissingInstructionReprError struct {
	Mnemonic mnemonic.Mnemonic
}

func (e *MissingInstructionReprError) Error() string {
	return fmt.Sprintf("failed to select instruction repr for %s", e.Mnemonic)
}

// Select returns the shortest legal recipe for m applied to operands in
// the given mode, or a *MissingInstructionReprError. A recipe is legal
// when its mode set contains md, its slot count equals the operand
// count, and every slot accepts its positional operand.
func Select(cat *catalog.Catalog, m mnemonic.Mnemonic, operands []operand.Operand, md mode.Mode) (catalog.EncodingRecipe, error) {
	candidates := cat.RecipesFor(m)

	var legal []catalog.EncodingRecipe
	for _, recipe := range candidates {
		if !recipe.Modes.Contains(md) {
			continue
		}
		if len(recipe.Operands) != len(operands) {
			continue
		}
		ok := true
		for i, slot := range recipe.Operands {
			if !operands[i].CanEncode(slot) {
				ok = false
				break
			}
		}
		if ok {
			legal = append(legal, recipe)
		}
	}

	if len(legal) == 0 {
		return catalog.EncodingRecipe{}, &MissingInstructionReprError{Mnemonic: m}
	}

	best := legal[0]
	for _, candidate := range legal[1:] {
		if smaller(candidate, best) {
			best = candidate
		}
	}
	return best, nil
}

// smaller reports whether a is preferred over b: a strictly larger
// operand width at any position loses; otherwise a strictly smaller
// width at some position wins outright; with equal widths, fewer
// directives wins.
func smaller(a, b catalog.EncodingRecipe) bool {
	aw, bw := a.Width(), b.Width()
	strictlySmaller := false
	for i := range aw {
		switch {
		case aw[i] < bw[i]:
			strictlySmaller = true
		case aw[i] > bw[i]:
			return false
		}
	}
	if strictlySmaller {
		return true
	}
	return a.DirectiveCount() < b.DirectiveCount()
}
