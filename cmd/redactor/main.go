// Command redactor removes sensitive content from PDF documents.
//
//	redactor redact  [flags] <in.pdf>   detect, redact, sanitize, verify
//	redactor sanitize [flags] <in.pdf>  strip metadata and auxiliary channels only
//	redactor inspect  [flags] <in.pdf>  report auxiliary channels, no changes
//
// Environment defaults are read from a .env file when present:
// REDACTOR_CONFIG (config file path) and REDACTOR_PASSWORD.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/wudi/redactor/box"
	"github.com/wudi/redactor/ocr/tesseract"
	"github.com/wudi/redactor/pdfdoc"
	pdfcpudoc "github.com/wudi/redactor/pdfdoc/pdfcpu"
	"github.com/wudi/redactor/pipeline"
	"github.com/wudi/redactor/sanitize"
	"github.com/wudi/redactor/verify"
)

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	var err error
	switch os.Args[1] {
	case "redact":
		err = runRedact(os.Args[2:])
	case "sanitize":
		err = runSanitize(os.Args[2:])
	case "inspect":
		err = runInspect(os.Args[2:])
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "redactor: unknown command %q\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		var vf *verify.Failure
		if errors.As(err, &vf) {
			fmt.Fprintf(os.Stderr, "redactor: %v\n", err)
			os.Exit(3)
		}
		fmt.Fprintf(os.Stderr, "redactor: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: redactor <command> [flags] <in.pdf>

Commands:
  redact    detect and remove sensitive content, then sanitize and verify
  sanitize  strip metadata, scripts, embedded files, links, forms, thumbnails
  inspect   report which auxiliary channels the document carries
`)
}

func openDoc(path, password string) (pdfdoc.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &pdfdoc.InputError{Err: err}
	}
	defer f.Close()
	return pdfcpudoc.Opener{}.Open(f, password)
}

func saveDoc(doc pdfdoc.Document, path string) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer out.Close()
	return doc.Save(out)
}

func loadConfig(path string) (pipeline.Config, error) {
	if path == "" {
		path = os.Getenv("REDACTOR_CONFIG")
	}
	if path == "" {
		return pipeline.DefaultConfig(), nil
	}
	return pipeline.LoadConfig(path)
}

func runRedact(args []string) error {
	fs := flag.NewFlagSet("redact", flag.ExitOnError)
	var terms, patterns, common stringList
	fs.Var(&terms, "term", "Exact term to redact (repeatable)")
	fs.Var(&patterns, "pattern", "Regular expression to redact (repeatable)")
	fs.Var(&common, "common", "Built-in pattern name: ssn, email, phone, ... (repeatable)")
	rects := fs.String("rects", "", "JSON rectangle file with manual redaction boxes")
	configPath := fs.String("config", "", "YAML configuration file")
	out := fs.String("out", "", "Output path (default <in>.redacted.pdf)")
	fill := fs.String("fill", "", "Fill color: black, white, red, green, blue, gray")
	password := fs.String("password", os.Getenv("REDACTOR_PASSWORD"), "Password for encrypted input")
	preview := fs.Bool("preview", false, "Report matches without modifying the document")
	noSanitize := fs.Bool("no-sanitize", false, "Skip sanitization")
	noVerify := fs.Bool("no-verify", false, "Skip verification")
	reportPath := fs.String("report", "", "Write the JSON report to this path instead of stdout")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("missing pdf path")
	}
	in := fs.Arg(0)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	cfg.Terms = append(cfg.Terms, terms...)
	cfg.Patterns = append(cfg.Patterns, patterns...)
	cfg.CommonPatterns = append(cfg.CommonPatterns, common...)
	if *fill != "" {
		cfg.Fill = *fill
	}
	if *noSanitize {
		cfg.Sanitize = false
	}
	if *noVerify {
		cfg.Verify = false
	}

	doc, err := openDoc(in, *password)
	if err != nil {
		return err
	}

	var manual box.PageBoxMap
	if *rects != "" {
		manual, err = box.LoadRectFile(*rects, doc.PageCount())
		if err != nil {
			return err
		}
	}
	if len(cfg.Terms) == 0 && len(cfg.Patterns) == 0 && len(cfg.CommonPatterns) == 0 && manual.Total() == 0 {
		return fmt.Errorf("nothing to redact: give -term, -pattern, -common, or -rects")
	}

	pipe := pipeline.New(cfg, pipeline.WithOCREngine(tesseract.New()))
	ctx := context.Background()

	if *preview {
		report, err := pipe.Preview(ctx, doc, manual)
		if err != nil {
			return err
		}
		return emitReport(report, *reportPath)
	}

	report, runErr := pipe.Run(ctx, doc, manual)
	if runErr != nil && report == nil {
		return runErr
	}

	dst := *out
	if dst == "" {
		dst = strings.TrimSuffix(in, ".pdf") + ".redacted.pdf"
	}
	if err := saveDoc(doc, dst); err != nil {
		return err
	}
	if err := emitReport(report, *reportPath); err != nil {
		return err
	}
	// A verification failure still wrote the output; surface it last.
	return runErr
}

func runSanitize(args []string) error {
	fs := flag.NewFlagSet("sanitize", flag.ExitOnError)
	out := fs.String("out", "", "Output path (default <in>.sanitized.pdf)")
	password := fs.String("password", os.Getenv("REDACTOR_PASSWORD"), "Password for encrypted input")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("missing pdf path")
	}
	in := fs.Arg(0)

	doc, err := openDoc(in, *password)
	if err != nil {
		return err
	}
	rep, err := sanitize.New().Sanitize(context.Background(), doc)
	if err != nil {
		return err
	}

	dst := *out
	if dst == "" {
		dst = strings.TrimSuffix(in, ".pdf") + ".sanitized.pdf"
	}
	if err := saveDoc(doc, dst); err != nil {
		return err
	}
	fmt.Printf("metadata: %d  javascript: %d  embedded files: %d  links: %d  forms: %d  thumbnails: %d\n",
		len(rep.MetadataRemoved), rep.JavaScriptRemoved, rep.EmbeddedFilesRemoved,
		rep.LinksRemoved, rep.FormsFlattened, rep.ThumbnailsRemoved)
	return nil
}

func runInspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	password := fs.String("password", os.Getenv("REDACTOR_PASSWORD"), "Password for encrypted input")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("missing pdf path")
	}

	doc, err := openDoc(fs.Arg(0), *password)
	if err != nil {
		return err
	}
	insp, warnings, err := sanitize.Inspect(doc)
	if err != nil {
		return err
	}
	fmt.Printf("pages: %d\n", doc.PageCount())
	fmt.Printf("metadata fields: %s\n", strings.Join(insp.MetadataFields, ", "))
	fmt.Printf("xmp: %v  javascript: %d  embedded files: %d  links: %d  form fields: %d  thumbnails: %d  encrypted: %v\n",
		insp.HasXMP, insp.JavaScript, insp.EmbeddedFiles, insp.Links, insp.FormFields, insp.Thumbnails, insp.Encrypted)
	for _, w := range warnings {
		fmt.Printf("warning: %s\n", w)
	}
	return nil
}

func emitReport(report *pipeline.Report, path string) error {
	data, err := report.JSON()
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if path == "" {
		fmt.Println(string(data))
		return nil
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
