// Command rtfconv converts product observations between RTF and HTML.
//
//	rtfconv -to html -in observation.rtf
//	echo '<p><b>Hola</b></p>' | rtfconv -to rtf
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/timmy/prodcat/internal/logger"
	"github.com/timmy/prodcat/internal/richtext"
)

func main() {
	appLogger := logger.New(&logger.Config{
		Level:       "warn",
		Format:      "text",
		Output:      os.Stderr,
		ServiceName: "prodcat-rtfconv",
	})
	logger.SetDefaultLogger(appLogger)

	to := flag.String("to", "html", "Target format: html or rtf")
	in := flag.String("in", "", "Input file (default stdin)")
	out := flag.String("out", "", "Output file (default stdout)")
	flag.Parse()

	if err := run(*to, *in, *out); err != nil {
		appLogger.WithError(err).Fatal("Conversion failed")
	}
}

func run(to, inPath, outPath string) error {
	var src io.Reader = os.Stdin
	if inPath != "" {
		f, err := os.Open(inPath)
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		src = f
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	result, err := convert(to, string(data))
	if err != nil {
		return err
	}

	if outPath == "" {
		_, err = io.WriteString(os.Stdout, result+"\n")
		return err
	}
	if err := os.WriteFile(outPath, []byte(result), 0644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	logger.Info("Wrote %d bytes to %s", len(result), outPath)
	return nil
}

func convert(to, input string) (string, error) {
	switch to {
	case "html":
		return richtext.ToHTML(input), nil
	case "rtf":
		return richtext.ToRTF(input), nil
	}
	return "", fmt.Errorf("unknown target format %q, want html or rtf", to)
}
