package assemble

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// WatermarkSpec is the text/link overlay requested for a final PDF.
type WatermarkSpec struct {
	Text string
	Link string
}

// Watermarker renders a WatermarkSpec onto a PDF's first page. Actual PDF
// mutation is an external collaborator (not implemented here, per §4.6):
// text rotated 90 degrees, gray, Times-Roman 20pt, left-edge vertically
// centered, with an optional link annotation covering the stamp region.
type Watermarker interface {
	Stamp(ctx context.Context, pdfPath string, spec WatermarkSpec) error
}

// pdfIntentProbe is the minimal surface Watermarker implementations need to
// reject ineligible inputs before attempting to stamp them.
type pdfIntentProbe interface {
	IsPDFA(path string) (bool, error)
}

// ApplyWatermark validates eligibility (must be PDF, must not be PDF/A) and
// delegates to w. Non-PDF and PDF/A inputs are rejected without invoking w.
func ApplyWatermark(ctx context.Context, w Watermarker, probe pdfIntentProbe, pdfPath string, spec WatermarkSpec) error {
	if spec.Text == "" {
		return nil
	}

	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return err
	}
	if len(data) < 4 || string(data[:4]) != "%PDF" {
		return fmt.Errorf("assemble: watermark target %s is not a PDF", pdfPath)
	}

	if probe != nil {
		isPDFA, err := probe.IsPDFA(pdfPath)
		if err != nil {
			return err
		}
		if isPDFA {
			return fmt.Errorf("assemble: watermark target %s is PDF/A, rejecting", pdfPath)
		}
	}

	return w.Stamp(ctx, pdfPath, spec)
}

// ExternalToolWatermarker shells out to a CLI watermarking tool (e.g. a
// pdfcpu "stamp" invocation), keeping PDF content-stream mutation out of
// this process the same way the merger and the TeX engines are external
// collaborators. It passes the tool only the watermark text, the PDF path
// (as both input and output) and, when spec.Link is set, "-link"; it sets no
// page selection, rotation, colour, font or position, so those are whatever
// the tool's text-stamp defaults are.
type ExternalToolWatermarker struct {
	Command string
}

func (e ExternalToolWatermarker) Stamp(ctx context.Context, pdfPath string, spec WatermarkSpec) error {
	args := []string{"stamp", "add", "-mode", "text", spec.Text, pdfPath, pdfPath}
	if spec.Link != "" {
		args = append(args, "-link", spec.Link)
	}
	cmd := exec.CommandContext(ctx, e.Command, args...)
	return cmd.Run()
}
