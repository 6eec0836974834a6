// Package runtime holds the helpers every pipeline step shares: context
// validation, attachment lookup and workbook open/save.
package runtime

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/kingrea/cosmic-fill/internal/artifact"
	"github.com/kingrea/cosmic-fill/internal/attachment"
	"github.com/kingrea/cosmic-fill/internal/matcher"
	"github.com/kingrea/cosmic-fill/internal/module"
	"github.com/kingrea/cosmic-fill/internal/sheet"
)

// ValidateContext ensures steps receive a usable context.
func ValidateContext(moduleID string, ctx *module.ModuleContext) error {
	if ctx == nil {
		return fmt.Errorf("%s: context is nil", moduleID)
	}
	if ctx.Config == nil {
		return fmt.Errorf("%s: config is required", moduleID)
	}
	if ctx.Attachments == nil {
		return fmt.Errorf("%s: attachment registry is required", moduleID)
	}
	if ctx.Artifacts == nil {
		return fmt.Errorf("%s: artifact store is required", moduleID)
	}
	if ctx.Logger == nil {
		ctx.Logger = zap.NewNop()
	}
	if ctx.Values == nil {
		ctx.Values = module.NewValues()
	}
	return nil
}

// RequireLLM extends ValidateContext for steps calling the generation service.
func RequireLLM(moduleID string, ctx *module.ModuleContext) error {
	if err := ValidateContext(moduleID, ctx); err != nil {
		return err
	}
	if ctx.LLM == nil {
		return fmt.Errorf("%s: generation client is required", moduleID)
	}
	return nil
}

// SlotRef returns the registered role for slot, or a generic workbook ref.
func SlotRef(slot int) artifact.ArtifactRef {
	if ref, ok := artifact.BySlot(slot); ok {
		return ref
	}
	return artifact.ArtifactRef{
		ID:   fmt.Sprintf("attachment-%d", slot),
		Name: fmt.Sprintf("附件%d", slot),
		Kind: artifact.KindWorkbook,
		Slot: slot,
	}
}

// OpenWorkbook resolves ref and opens it for writing. A missing attachment
// returns ok=false so the step can skip.
func OpenWorkbook(moduleID string, ctx *module.ModuleContext, ref artifact.ArtifactRef) (*sheet.Workbook, attachment.Slot, bool, error) {
	slot, ok := ctx.Resolve(ref)
	if !ok {
		return nil, slot, false, nil
	}
	wb, err := sheet.OpenWorkbook(slot.Path)
	if err != nil {
		return nil, slot, true, fmt.Errorf("%s: %w", moduleID, err)
	}
	return wb, slot, true, nil
}

// OpenBook resolves ref and opens it read-only, accepting legacy .xls files.
func OpenBook(moduleID string, ctx *module.ModuleContext, ref artifact.ArtifactRef) (sheet.Book, attachment.Slot, bool, error) {
	slot, ok := ctx.Resolve(ref)
	if !ok {
		return nil, slot, false, nil
	}
	book, err := sheet.Open(slot.Path)
	if err != nil {
		return nil, slot, true, fmt.Errorf("%s: %w", moduleID, err)
	}
	return book, slot, true, nil
}

// SaveWorkbook writes wb back through the artifact store.
func SaveWorkbook(moduleID string, ctx *module.ModuleContext, wb *sheet.Workbook) error {
	if err := wb.Save(ctx.Artifacts); err != nil {
		return fmt.Errorf("%s: save %s: %w", moduleID, wb.Path(), err)
	}
	return nil
}

// Matcher builds a matcher honoring the configured call deadlines.
func Matcher(ctx *module.ModuleContext) *matcher.Matcher {
	return matcher.New(ctx.LLM, ctx.Logger,
		matcher.WithTimeouts(ctx.Config.SummaryTimeout(), ctx.Config.MatchTimeout(), ctx.Config.SectionsTimeout()),
	)
}

// CellValue converts displayed text to a number when it parses as one.
func CellValue(text string) any {
	if n, ok := sheet.Number(text); ok {
		return n
	}
	return text
}

// FormatNumber renders n without trailing zeros.
func FormatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}
