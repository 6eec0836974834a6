package modules

import (
	"github.com/kingrea/cosmic-fill/internal/module"
	"github.com/kingrea/cosmic-fill/internal/modules/copy_name"
	"github.com/kingrea/cosmic-fill/internal/modules/cross_reference"
	"github.com/kingrea/cosmic-fill/internal/modules/date_stamp"
	"github.com/kingrea/cosmic-fill/internal/modules/project_docs"
	"github.com/kingrea/cosmic-fill/internal/modules/rename"
	"github.com/kingrea/cosmic-fill/internal/modules/sum_column"
	"github.com/kingrea/cosmic-fill/internal/modules/summarize"
	"github.com/kingrea/cosmic-fill/internal/modules/wbs_match"
	"github.com/kingrea/cosmic-fill/internal/modules/write_value"
)

// RegisterBuiltins installs all of the built-in module factories into the
// provided registry.
func RegisterBuiltins(reg *module.Registry) {
	if reg == nil {
		return
	}
	rename.Register(reg)
	copy_name.Register(reg)
	sum_column.Register(reg)
	write_value.Register(reg)
	date_stamp.Register(reg)
	cross_reference.Register(reg)
	summarize.Register(reg)
	wbs_match.Register(reg)
	project_docs.Register(reg)
}
