// Package runner feeds sensor packages through the calculator and prints one report line per package.
package runner

import (
	"context"
	"fmt"
	"io"

	"example.com/training/internal/domain"
)

// DefaultPackages are the sample packages reported by the trainer command.
func DefaultPackages() []domain.Package {
	return []domain.Package{
		{Code: "SWM", Data: []float64{720, 1, 80, 25, 40}},
		{Code: "RUN", Data: []float64{15000, 1, 75}},
		{Code: "WLK", Data: []float64{9000, 1, 75, 180}},
	}
}

// Run writes a summary line for every package in order and stops at the first failure.
func Run(ctx context.Context, w io.Writer, packages []domain.Package) error {
	for i, pkg := range packages {
		if err := ctx.Err(); err != nil {
			return err
		}
		training, err := domain.ReadPackage(pkg.Code, pkg.Data)
		if err != nil {
			return fmt.Errorf("package %d (%s): %w", i, pkg.Code, err)
		}
		if _, err := io.WriteString(w, domain.Summarize(training).Message()+"\n"); err != nil {
			return fmt.Errorf("write package %d: %w", i, err)
		}
	}
	return nil
}
