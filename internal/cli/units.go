package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/structlayout/internal/dwarfprov"
	"github.com/roach88/structlayout/internal/provider"
	"github.com/roach88/structlayout/internal/typegraph"
)

// UnitError reports an input that could not be opened as a provider.
type UnitError struct {
	Code string
	Path string
	Err  error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Path, e.Err)
}

func (e *UnitError) Unwrap() error { return e.Err }

// openUnit returns the provider for one input. .cue files are type graph
// documents; anything else is read as an ELF object with DWARF debug info.
func openUnit(path string) (provider.Provider, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &UnitError{Code: ErrCodeNotFound, Path: path, Err: errors.New("input not found")}
		}
		return nil, &UnitError{Code: ErrCodeLoadFailed, Path: path, Err: err}
	}

	var (
		p   provider.Provider
		err error
	)
	if strings.EqualFold(filepath.Ext(path), ".cue") {
		p, err = typegraph.Load(path)
	} else {
		p, err = dwarfprov.Open(path)
	}
	if err != nil {
		return nil, &UnitError{Code: ErrCodeLoadFailed, Path: path, Err: err}
	}
	return p, nil
}

// unitErrorCode returns the CLI code for a failure opening a unit.
func unitErrorCode(err error) string {
	var ue *UnitError
	if errors.As(err, &ue) {
		return ue.Code
	}
	return ErrCodeGeneric
}
