package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/pyhub-apps/pdfdesk-golang/pkg/pdf"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: extract_text <pdf_file>")
		os.Exit(1)
	}

	pdfPath := os.Args[1]
	data, err := os.ReadFile(pdfPath)
	if err != nil {
		log.Fatalf("Failed to read PDF: %v", err)
	}

	ctx := context.Background()
	svc := pdf.NewPDFCPUService()
	doc, err := svc.Load(ctx, data)
	if err != nil {
		log.Fatalf("Failed to open PDF: %v", err)
	}
	defer svc.Close(doc)
	fmt.Printf("Document has %d pages\n\n", doc.PageCount())

	pages, err := pdf.ExtractText(ctx, data)
	if err != nil {
		log.Fatalf("Failed to extract text: %v", err)
	}

	for i, page := range pages {
		fmt.Printf("=== Page %d ===\n", page.PageNumber)
		if size, err := doc.PageSize(i); err == nil {
			fmt.Printf("Size: %.2f x %.2f\n", size.Width, size.Height)
		}

		if text := page.String(); text != "" {
			fmt.Println("\nExtracted Text:")
			fmt.Println(text)
		} else {
			fmt.Println("No text found on this page")
		}

		// first few runs with positions
		n := min(len(page.Items), 5)
		if n > 0 {
			fmt.Println("\nFirst few runs:")
		}
		for _, it := range page.Items[:n] {
			fmt.Printf("  '%s' at (%.2f, %.2f) height=%.2f\n", it.Text, it.X, it.Y, it.Height)
		}
		fmt.Println()
	}
}
