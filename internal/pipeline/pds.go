package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"autorxte/internal/heasoft"
)

// PDSStage turns a light curve into a power density spectrum in XSPEC
// form. Three tools chain per observation: powspec computes the
// spectrum, fplot dumps frequency/power columns to a QDP table, and
// flx2xsp converts the rebinned table to pha/rsp files. Between fplot
// and flx2xsp the QDP table is reshaped into flux-format bins.
type PDSStage struct {
	// LCFile is the input light curve inside Analysis.
	LCFile string
	// Binning is powspec's time binning (-1 = choose automatically).
	Binning string
	// Rebin is the geometric rebin factor for the frequency axis.
	Rebin string
	// OutputPNG is the powspec hardcopy device string.
	OutputPNG string
}

func (PDSStage) Name() string    { return "pds" }
func (PDSStage) Tools() []string { return []string{"powspec", "fplot", "flx2xsp"} }

func (PDSStage) Done(d ObsDir) bool {
	_, err := os.Stat(filepath.Join(d.AnalysisDir(), "pds-src.pha"))
	return err == nil
}

func (s PDSStage) Ready(d ObsDir) error {
	if _, err := os.Stat(filepath.Join(d.AnalysisDir(), s.LCFile)); err != nil {
		return &PreconditionError{Missing: s.LCFile + " in " + d.AnalysisDir()}
	}
	return nil
}

func (s PDSStage) Execute(ctx context.Context, r heasoft.Runner, d ObsDir) error {
	analysis := d.AnalysisDir()
	base := strings.TrimSuffix(s.LCFile, ".lc")

	powspecScript := []string{
		s.LCFile,
		"-",
		s.Binning,
		"8192",
		"INDEF",
		s.Rebin,
		"default",
		"yes",
		"/xw",
		"hardcopy " + s.OutputPNG,
		"Wd " + filepath.Join(analysis, base+".qdp"),
		"q",
	}
	if err := r.Run(ctx, analysis, "powspec", powspecScript, "norm=-2", "window=none"); err != nil {
		return fmt.Errorf("powspec: %w", err)
	}

	fplotScript := []string{
		filepath.Join(analysis, base+".fps"),
		"FREQUENCY[XAX_E]",
		"POWER[ERROR]",
		"-",
		"/xw",
		"log xy on",
		"wd " + filepath.Join(analysis, base+"_fps"),
		"q",
	}
	if err := r.Run(ctx, analysis, "fplot", fplotScript); err != nil {
		return fmt.Errorf("fplot: %w", err)
	}

	datFile := filepath.Join(analysis, "temp.dat")
	if err := reshapeQDP(filepath.Join(analysis, base+"_fps.qdp"), datFile); err != nil {
		return err
	}

	flxScript := []string{
		datFile,
		filepath.Join(analysis, "pds-src.pha"),
		filepath.Join(analysis, "pds-rsp.pha"),
		"$",
	}
	if err := r.Run(ctx, analysis, "flx2xsp", flxScript); err != nil {
		return fmt.Errorf("flx2xsp: %w", err)
	}
	return nil
}

// reshapeQDP converts fplot's center/half-width QDP columns into the
// low/high bin edges flx2xsp wants: freq±halfwidth become the bin
// bounds, power and error pass through. The first three lines are QDP
// plot directives, not data.
func reshapeQDP(qdpPath, datPath string) error {
	in, err := os.Open(qdpPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", qdpPath, err)
	}
	defer in.Close()
	out, err := os.Create(datPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", datPath, err)
	}
	w := bufio.NewWriter(out)

	sc := bufio.NewScanner(in)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		if lineNo <= 3 {
			continue
		}
		fields := strings.Fields(sc.Text())
		if len(fields) < 4 {
			continue
		}
		vals := make([]float64, 4)
		ok := true
		for i := 0; i < 4; i++ {
			v, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				ok = false
				break
			}
			vals[i] = v
		}
		if !ok {
			continue
		}
		fmt.Fprintf(w, "%g %g %g %g\n", vals[0]-vals[1], vals[0]+vals[1], vals[2], vals[3])
	}
	if err := sc.Err(); err != nil {
		_ = out.Close()
		return fmt.Errorf("read %s: %w", qdpPath, err)
	}
	if err := w.Flush(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
