package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/pyhub-apps/pdfdesk-golang/pkg/config"
	"github.com/pyhub-apps/pdfdesk-golang/pkg/geometry"
	"github.com/pyhub-apps/pdfdesk-golang/pkg/logger"
	"github.com/pyhub-apps/pdfdesk-golang/pkg/pdf"
	"github.com/pyhub-apps/pdfdesk-golang/pkg/session"
)

var (
	app        = kingpin.New("pdfdesk", "Reorganize, annotate, merge and split PDF documents.")
	configPath = app.Flag("config", "YAML config file").Short('c').String()
	outDir     = app.Flag("out", "output directory").Default(".").Short('o').String()
	logLevel   = app.Flag("log-level", "debug, info, warn or error").String()

	mergeCmd   = app.Command("merge", "Concatenate documents in order.")
	mergeFiles = mergeCmd.Arg("pdf", "PDF files").Required().Strings()

	splitCmd  = app.Command("split", "Split a document after a page.")
	splitFile = splitCmd.Arg("pdf", "PDF file").Required().String()
	splitAt   = splitCmd.Arg("page", "last page of the first part").Required().Int()

	extractCmd  = app.Command("extract", "Write a page range as a new document.")
	extractFile = extractCmd.Arg("pdf", "PDF file").Required().String()
	extractFrom = extractCmd.Arg("from", "first page").Required().Int()
	extractTo   = extractCmd.Arg("to", "last page").Required().Int()

	organizeCmd    = app.Command("organize", "Apply a script of page operations.")
	organizeFile   = organizeCmd.Arg("pdf", "PDF file").Required().String()
	organizeScript = organizeCmd.Arg("script", "YAML script").Required().String()

	textCmd  = app.Command("text", "Print the text of every page.")
	textFile = textCmd.Arg("pdf", "PDF file").Required().String()

	signCmd   = app.Command("sign", "Stamp a PNG or JPEG signature onto a page.")
	signFile  = signCmd.Arg("pdf", "PDF file").Required().String()
	signImage = signCmd.Arg("image", "signature image").Required().String()
	signPage  = signCmd.Flag("page", "page").Default("1").Short('p').Int()
	signX     = signCmd.Flag("x", "left edge in preview pixels").Default("50").Float()
	signY     = signCmd.Flag("y", "top edge in preview pixels").Default("50").Float()
	signWidth = signCmd.Flag("width", "width in preview pixels").Default("150").Float()

	annotateCmd   = app.Command("annotate", "Burn annotations from a YAML file into a document.")
	annotateFile  = annotateCmd.Arg("pdf", "PDF file").Required().String()
	annotateMarks = annotateCmd.Arg("annotations", "YAML annotations").Required().String()
)

func main() {
	app.Version("1")
	cmd := kingpin.MustParse(app.Parse(os.Args[1:]))

	cfg := config.NewDefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("config error: %s", err)
		}
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	logger.SetLogger(logger.New(cfg.LogLevel, os.Stderr))

	ctx := context.Background()
	svc := pdf.NewPDFCPUService(pdf.WithMaxDocumentBytes(cfg.MaxDocumentBytes))

	if err := run(ctx, cmd, svc, cfg); err != nil {
		log.Fatalf("%s error: %s", cmd, err)
	}
}

func run(ctx context.Context, cmd string, svc pdf.DocumentService, cfg *config.Config) error {
	switch cmd {
	case mergeCmd.FullCommand():
		inputs := make([][]byte, 0, len(*mergeFiles))
		for _, p := range *mergeFiles {
			data, err := os.ReadFile(p)
			if err != nil {
				return err
			}
			inputs = append(inputs, data)
		}
		out, err := session.Merge(ctx, svc, inputs)
		if err != nil {
			return err
		}
		return write(out)

	case splitCmd.FullCommand():
		return withSession(ctx, svc, cfg, *splitFile, func(s *session.Session) error {
			a, b, err := s.Split(ctx, *splitAt)
			if err != nil {
				return err
			}
			if err := write(a); err != nil {
				return err
			}
			return write(b)
		})

	case extractCmd.FullCommand():
		return withSession(ctx, svc, cfg, *extractFile, func(s *session.Session) error {
			out, err := s.Extract(ctx, *extractFrom, *extractTo)
			if err != nil {
				return err
			}
			return write(out)
		})

	case organizeCmd.FullCommand():
		var sc script
		if err := readYAML(*organizeScript, &sc); err != nil {
			return err
		}
		return withSession(ctx, svc, cfg, *organizeFile, func(s *session.Session) error {
			if err := sc.apply(s); err != nil {
				return err
			}
			state, err := s.State()
			if err != nil {
				return err
			}
			save := s.SaveOrganized
			if state.HasBlanks() {
				save = s.SaveWithBlanks
			}
			out, err := save(ctx)
			if err != nil {
				return err
			}
			return write(out)
		})

	case textCmd.FullCommand():
		return withSession(ctx, svc, cfg, *textFile, func(s *session.Session) error {
			pages, err := s.Text(ctx)
			if err != nil {
				return err
			}
			for _, p := range pages {
				fmt.Printf("=== Page %d ===\n%s\n\n", p.PageNumber, p.String())
			}
			return nil
		})

	case signCmd.FullCommand():
		img, err := os.ReadFile(*signImage)
		if err != nil {
			return err
		}
		return withSession(ctx, svc, cfg, *signFile, func(s *session.Session) error {
			out, err := s.Sign(ctx, *signPage, img, geometry.Point{X: *signX, Y: *signY}, *signWidth)
			if err != nil {
				return err
			}
			return write(out)
		})

	case annotateCmd.FullCommand():
		var ms marks
		if err := readYAML(*annotateMarks, &ms); err != nil {
			return err
		}
		base, err := cfg.Style()
		if err != nil {
			return err
		}
		return withSession(ctx, svc, cfg, *annotateFile, func(s *session.Session) error {
			if err := ms.apply(s, base); err != nil {
				return err
			}
			out, err := s.SaveAnnotated(ctx)
			if err != nil {
				return err
			}
			return write(out)
		})
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func withSession(ctx context.Context, svc pdf.DocumentService, cfg *config.Config, path string, fn func(*session.Session) error) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	s, err := session.Open(ctx, svc, data, filepath.Base(path), cfg)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

func write(out session.Output) error {
	path := filepath.Join(*outDir, out.Name)
	if err := os.WriteFile(path, out.Data, 0o644); err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}
