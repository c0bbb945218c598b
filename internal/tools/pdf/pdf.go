// Package pdf exposes the PDF tools backed by pdfcpu: document info, merging,
// splitting and text watermarks.
package pdf

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/sammcj/mcp-office/internal/output"
	"github.com/sammcj/mcp-office/internal/registry"
	"github.com/sammcj/mcp-office/internal/tools"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultMaxFileSize is the largest PDF the tools will open
	DefaultMaxFileSize   = int64(200 * 1024 * 1024)
	PDFMaxFileSizeEnvVar = "PDF_MAX_FILE_SIZE"
)

type handlers struct {
	store *output.Store
}

// Register adds the PDF tools to reg
func Register(reg *registry.Registry, store *output.Store) error {
	// pdfcpu otherwise writes a config directory under the user's home
	api.DisableConfigDir()

	h := &handlers{store: store}
	return reg.RegisterAll(
		tools.NewFunc(tools.Define("get_pdf_info",
			"Report a PDF's page count, page sizes, version and document metadata as JSON",
			tools.Reads,
			tools.Filename("PDF to inspect"),
		), h.info),

		tools.NewFunc(tools.Define("merge_pdfs",
			"Combine PDFs into one, in the order given",
			tools.Creates,
			tools.Filename("Merged PDF to create"),
			tools.StringArray("files", "PDFs to merge. Glob patterns such as reports/*.pdf are expanded in name order", mcp.Required(), mcp.MinItems(1)),
			mcp.WithBoolean("dividerPages", mcp.Description("Insert a blank page between the inputs"), mcp.DefaultBool(false)),
			tools.OutputPath(),
		), h.merge).WithHelp(&tools.ExtendedHelp{
			Examples: []tools.ToolExample{
				{
					Description:    "Merge a cover page with every chapter",
					Arguments:      map[string]any{"filename": "book.pdf", "files": []any{"cover.pdf", "chapters/*.pdf"}},
					ExpectedResult: "The merged file path and its page count",
				},
			},
			Troubleshooting: []tools.TroubleshootingTip{
				{Problem: "fewer than two files to merge", Solution: "Check the glob patterns; they are resolved against the output directory"},
			},
		}),

		tools.NewFunc(tools.Define("split_pdf",
			"Split a PDF into several files, either every N pages or by page ranges",
			tools.Creates,
			tools.Filename("PDF to split"),
			mcp.WithNumber("span", mcp.Description("Pages per output file when ranges is not given"), mcp.DefaultNumber(1), mcp.Min(1)),
			tools.StringArray("ranges", "Page ranges, one output file each, e.g. 1-3 or 2,5,7"),
			mcp.WithString("outputDir", mcp.Description("Directory for the parts, defaults to the output directory")),
		), h.split),

		tools.NewFunc(tools.Define("add_pdf_watermark",
			"Stamp text diagonally across the pages of a PDF",
			tools.Edits,
			tools.Filename("PDF to watermark"),
			mcp.WithString("text", mcp.Required()),
			mcp.WithString("pages", mcp.Description("Pages to mark, e.g. 1-3,5 or all"), mcp.DefaultString("all")),
			mcp.WithNumber("fontSize", mcp.DefaultNumber(48), mcp.Min(6), mcp.Max(400)),
			mcp.WithNumber("rotation", mcp.DefaultNumber(45), mcp.Min(-180), mcp.Max(180)),
			mcp.WithNumber("opacity", mcp.DefaultNumber(0.3), mcp.Min(0), mcp.Max(1)),
			mcp.WithString("color", mcp.Description("Hex colour"), mcp.DefaultString("#808080")),
			mcp.WithBoolean("onTop", mcp.Description("Draw over the page content instead of beneath it"), mcp.DefaultBool(true)),
			tools.OutputPath(),
		), h.watermark),
	)
}

// input resolves an existing PDF and applies the size limit
func (h *handlers) input(name string) (string, int64, error) {
	path, err := h.store.ResolveInput(name)
	if err != nil {
		return "", 0, err
	}
	fileInfo, err := os.Stat(path)
	if os.IsNotExist(err) {
		return "", 0, fmt.Errorf("PDF file does not exist: %s", path)
	}
	if err != nil {
		return "", 0, fmt.Errorf("failed to stat PDF file: %w", err)
	}
	if fileInfo.IsDir() {
		return "", 0, fmt.Errorf("%s is a directory", path)
	}
	if limit := MaxFileSize(); fileInfo.Size() > limit {
		return "", 0, fmt.Errorf("%s is %d bytes, larger than the %d byte limit (set %s to raise it)", path, fileInfo.Size(), limit, PDFMaxFileSizeEnvVar)
	}
	return path, fileInfo.Size(), nil
}

// MaxFileSize returns the configured size limit
func MaxFileSize() int64 {
	if v := os.Getenv(PDFMaxFileSizeEnvVar); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return DefaultMaxFileSize
}

func config() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// scratch runs fn with a temporary directory removed afterwards
func scratch(fn func(dir string) error) error {
	dir, err := os.MkdirTemp("", "mcp-office-pdf-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)
	return fn(dir)
}

func (h *handlers) info(_ context.Context, logger *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	path, size, err := h.input(args.String("filename"))
	if err != nil {
		return nil, err
	}
	pdfCtx, err := api.ReadContextFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	info := Info{
		Path:         path,
		Version:      pdfCtx.VersionString(),
		Pages:        pdfCtx.PageCount,
		Title:        pdfCtx.Title,
		Author:       pdfCtx.Author,
		Subject:      pdfCtx.Subject,
		Keywords:     pdfCtx.Keywords,
		Creator:      pdfCtx.Creator,
		Producer:     pdfCtx.Producer,
		CreationDate: pdfCtx.XRefTable.CreationDate,
		ModDate:      pdfCtx.ModDate,
		Encrypted:    pdfCtx.Encrypt != nil,
		FileSize:     size,
	}
	if dims, err := api.PageDimsFile(path); err == nil {
		for i, d := range dims {
			w, hgt := math.Round(d.Width*100)/100, math.Round(d.Height*100)/100
			n := len(info.PageSizes)
			if n > 0 && info.PageSizes[n-1].Width == w && info.PageSizes[n-1].Height == hgt {
				info.PageSizes[n-1].Pages = extendRun(info.PageSizes[n-1].Pages, i+1)
				continue
			}
			info.PageSizes = append(info.PageSizes, PageSize{Width: w, Height: hgt, Pages: strconv.Itoa(i + 1)})
		}
	} else {
		logger.WithError(err).Debug("Failed to read page dimensions")
	}
	return newToolResultJSON(info)
}

// extendRun grows a "first-last" page run by one page
func extendRun(run string, page int) string {
	first, _, _ := strings.Cut(run, "-")
	return fmt.Sprintf("%s-%d", first, page)
}

// expand resolves each entry, expanding glob patterns in name order
func (h *handlers) expand(entries []string) ([]string, error) {
	var paths []string
	for _, entry := range entries {
		if !strings.ContainsAny(entry, "*?[{") {
			path, _, err := h.input(entry)
			if err != nil {
				return nil, err
			}
			paths = append(paths, path)
			continue
		}
		pattern, err := h.store.ResolveInput(entry)
		if err != nil {
			return nil, err
		}
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", entry, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match %q", entry)
		}
		slices.Sort(matches)
		for _, m := range matches {
			path, _, err := h.input(m)
			if err != nil {
				return nil, err
			}
			paths = append(paths, path)
		}
	}
	return paths, nil
}

func (h *handlers) merge(ctx context.Context, logger *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	filename, err := args.RequireString("filename")
	if err != nil {
		return nil, err
	}
	target, err := h.store.Resolve(filename, args.String("outputPath"))
	if err != nil {
		return nil, err
	}
	inputs, err := h.expand(args.Strings("files"))
	if err != nil {
		return nil, err
	}
	if len(inputs) < 2 {
		return nil, &tools.ValidationError{Field: "files", Value: args.Strings("files"), Message: "at least two PDFs are needed to merge"}
	}
	if slices.Contains(inputs, target) {
		return nil, &tools.ValidationError{Field: "filename", Value: filename, Message: "the merged file cannot also be an input"}
	}

	var data []byte
	err = scratch(func(dir string) error {
		out := filepath.Join(dir, "merged.pdf")
		if err := api.MergeCreateFile(inputs, out, args.Bool("dividerPages", false), config()); err != nil {
			return fmt.Errorf("failed to merge PDFs: %w", err)
		}
		data, err = os.ReadFile(out)
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := h.store.Write(ctx, target, data); err != nil {
		return nil, err
	}
	pages, err := api.PageCountFile(target)
	if err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{"path": target, "inputs": len(inputs)}).Info("Merged PDFs")
	return tools.Text("Merged %d PDFs into %s (%d pages)", len(inputs), target, pages), nil
}

func (h *handlers) split(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	path, _, err := h.input(args.String("filename"))
	if err != nil {
		return nil, err
	}
	outDir, err := h.store.ResolveDir(args.String("outputDir"))
	if err != nil {
		return nil, err
	}
	total, err := api.PageCountFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	ranges := args.Strings("ranges")

	var written []string
	err = scratch(func(dir string) error {
		if len(ranges) == 0 {
			span := args.Int("span", 1)
			if span < 1 {
				return &tools.ValidationError{Field: "span", Value: span, Message: "must be at least 1"}
			}
			if err := api.SplitFile(path, dir, span, config()); err != nil {
				return fmt.Errorf("failed to split %s: %w", path, err)
			}
		} else {
			for i, r := range ranges {
				pages, err := ParsePageSelection(r, total)
				if err != nil {
					return &tools.ValidationError{Field: "ranges", Value: r, Message: err.Error()}
				}
				name := fmt.Sprintf("%s_part%d_%s.pdf", base, i+1, pageLabel(pages))
				if err := api.TrimFile(path, filepath.Join(dir, name), selection(pages), config()); err != nil {
					return fmt.Errorf("failed to extract pages %s: %w", r, err)
				}
			}
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			return err
		}
		for _, e := range entries {
			data, err := os.ReadFile(filepath.Join(dir, e.Name()))
			if err != nil {
				return err
			}
			target := filepath.Join(outDir, e.Name())
			if err := h.store.Write(ctx, target, data); err != nil {
				return err
			}
			written = append(written, target)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(written) == 0 {
		return nil, fmt.Errorf("splitting %s produced no files", path)
	}
	return tools.Text("Split %s (%d pages) into %d file(s):\n%s", path, total, len(written), strings.Join(written, "\n")), nil
}

func (h *handlers) watermark(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	source, _, err := h.input(args.String("filename"))
	if err != nil {
		return nil, err
	}
	target, err := h.store.Resolve(args.String("filename"), args.String("outputPath"))
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(args.String("text"))
	if text == "" {
		return nil, &tools.ValidationError{Field: "text", Message: "watermark text is required"}
	}
	total, err := api.PageCountFile(source)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", source, err)
	}
	pages, err := ParsePageSelection(args.StringOr("pages", "all"), total)
	if err != nil {
		return nil, &tools.ValidationError{Field: "pages", Value: args.String("pages"), Message: err.Error()}
	}
	color := args.StringOr("color", "#808080")
	if !strings.HasPrefix(color, "#") {
		color = "#" + color
	}
	desc := fmt.Sprintf("points:%d, rot:%g, op:%g, fillc:%s",
		args.Int("fontSize", 48), args.Float("rotation", 45), args.Float("opacity", 0.3), color)

	wm, err := api.TextWatermark(text, desc, args.Bool("onTop", true), false, types.POINTS)
	if err != nil {
		return nil, &tools.ValidationError{Field: "text", Value: text, Message: err.Error()}
	}

	_, _, err = h.store.Edit(ctx, args.String("filename"), args.String("outputPath"), func(existing []byte) ([]byte, error) {
		var out bytes.Buffer
		if err := api.AddWatermarks(bytes.NewReader(existing), &out, selection(pages), wm, config()); err != nil {
			return nil, fmt.Errorf("failed to watermark %s: %w", source, err)
		}
		return out.Bytes(), nil
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Added watermark %q to %d of %d pages in %s", text, len(pages), total, target), nil
}

// ParsePageSelection parses a page selection such as "1-3,5" or "all" into
// sorted, distinct page numbers
func ParsePageSelection(pages string, maxPage int) ([]int, error) {
	pages = strings.TrimSpace(pages)
	if pages == "" || strings.EqualFold(pages, "all") {
		result := make([]int, maxPage)
		for i := range maxPage {
			result[i] = i + 1
		}
		return result, nil
	}

	var result []int
	for part := range strings.SplitSeq(pages, ",") {
		part = strings.TrimSpace(part)
		if from, to, ok := strings.Cut(part, "-"); ok {
			start, err := strconv.Atoi(strings.TrimSpace(from))
			if err != nil {
				return nil, fmt.Errorf("invalid start page: %s", from)
			}
			end, err := strconv.Atoi(strings.TrimSpace(to))
			if err != nil {
				return nil, fmt.Errorf("invalid end page: %s", to)
			}
			if start < 1 || end > maxPage || start > end {
				return nil, fmt.Errorf("invalid page range: %d-%d (max page: %d)", start, end, maxPage)
			}
			for i := start; i <= end; i++ {
				result = append(result, i)
			}
			continue
		}
		page, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid page number: %s", part)
		}
		if page < 1 || page > maxPage {
			return nil, fmt.Errorf("page number out of range: %d (max page: %d)", page, maxPage)
		}
		result = append(result, page)
	}
	slices.Sort(result)
	return slices.Compact(result), nil
}

func selection(pages []int) []string {
	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = strconv.Itoa(p)
	}
	return out
}

func pageLabel(pages []int) string {
	if len(pages) == 1 {
		return strconv.Itoa(pages[0])
	}
	return fmt.Sprintf("%d-%d", pages[0], pages[len(pages)-1])
}

func newToolResultJSON(data any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}
