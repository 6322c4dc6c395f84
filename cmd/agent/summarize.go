package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"

	"whatsbot/internal/app"
	"whatsbot/internal/apperr"
	"whatsbot/internal/httputil"
	"whatsbot/internal/llm"
	"whatsbot/internal/textutil"
)

// multipartOverhead is the body allowance beyond the file itself for form
// fields and part headers.
const multipartOverhead = 1 << 20

type summarizeRequest struct {
	Text      string                 `json:"text" validate:"required"`
	MaxLength int                    `json:"max_length" validate:"gte=0"`
	MinLength int                    `json:"min_length" validate:"gte=0"`
	Format    textutil.SummaryFormat `json:"format" validate:"omitempty,oneof=paragraph bullets"`
}

type summarizeResponse struct {
	Summary        string         `json:"summary"`
	OriginalLength int            `json:"original_length"`
	SummaryLength  int            `json:"summary_length"`
	Metadata       map[string]any `json:"metadata"`
}

func summarizeHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req summarizeRequest
		if !httputil.DecodeJSON(deps.Log, w, r, &req) {
			return
		}
		resp, err := summarize(context.WithoutCancel(r.Context()), deps, req)
		if err != nil {
			httputil.FailErr(deps.Log, w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, resp)
	}
}

// summarize runs the summary, formats it and posts it to the summary
// channel. A failed post fails the request.
func summarize(ctx context.Context, deps app.Deps, req summarizeRequest) (summarizeResponse, error) {
	originalLength := textutil.CountWords(req.Text)
	if originalLength == 0 {
		return summarizeResponse{}, apperr.New(apperr.KindValidation, "Input text is empty")
	}
	if req.MaxLength == 0 {
		req.MaxLength = llm.DefaultMaxLength
	}
	if req.MinLength == 0 {
		req.MinLength = llm.DefaultMinLength
	}
	if req.Format == "" {
		req.Format = textutil.FormatParagraph
	}

	summary, err := deps.LLM.Summarize(ctx, req.Text, req.MaxLength, req.MinLength)
	if err != nil {
		return summarizeResponse{}, err
	}
	formatted := textutil.FormatSummary(summary, req.Format)
	summaryLength := textutil.CountWords(formatted)
	ratio := textutil.CompressionRatio(originalLength, summaryLength)

	if channel := deps.Config.SlackSummaryChannel; channel != "" && deps.Slack != nil {
		if _, err := deps.Slack.PostSummary(ctx, channel, req.Text, formatted, ""); err != nil {
			return summarizeResponse{}, err
		}
	}

	deps.Log.Info("text summarized", "original_words", originalLength, "summary_words", summaryLength, "compression_ratio", ratio)
	return summarizeResponse{
		Summary:        formatted,
		OriginalLength: originalLength,
		SummaryLength:  summaryLength,
		Metadata: map[string]any{
			"format":            req.Format,
			"compression_ratio": ratio,
		},
	}, nil
}

// uploadHandler summarizes an uploaded .txt or .pdf file. Length and format
// come from optional form fields.
func uploadHandler(deps app.Deps) http.HandlerFunc {
	maxFileSize := deps.Config.MaxUploadSize

	return func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > maxFileSize {
			httputil.Fail(deps.Log, w, fmt.Sprintf("file too large (max %d bytes)", maxFileSize), nil, http.StatusBadRequest)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxFileSize+multipartOverhead)

		file, header, err := r.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				httputil.Fail(deps.Log, w, fmt.Sprintf("file too large (max %d bytes)", maxFileSize), err, http.StatusBadRequest)
				return
			}
			httputil.Fail(deps.Log, w, "file is required", err, http.StatusBadRequest)
			return
		}
		defer file.Close() //nolint:errcheck

		if header.Size > maxFileSize {
			httputil.Fail(deps.Log, w, fmt.Sprintf("file too large (max %d bytes)", maxFileSize), nil, http.StatusBadRequest)
			return
		}
		if !supportedUpload(header.Filename, header.Header.Get("Content-Type")) {
			httputil.Fail(deps.Log, w, "unsupported file type (only PDF and TXT allowed)", nil, http.StatusBadRequest)
			return
		}

		req := summarizeRequest{Format: textutil.SummaryFormat(r.FormValue("format"))}
		if req.MaxLength, err = formInt(r, "max_length"); err != nil {
			httputil.Fail(deps.Log, w, "max_length must be a number", err, http.StatusBadRequest)
			return
		}
		if req.MinLength, err = formInt(r, "min_length"); err != nil {
			httputil.Fail(deps.Log, w, "min_length must be a number", err, http.StatusBadRequest)
			return
		}

		content, err := io.ReadAll(file)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to read file", err, http.StatusInternalServerError)
			return
		}
		req.Text = extractText(deps, header.Filename, content)
		if err := httputil.Validator.Struct(&req); err != nil {
			httputil.ValidationError(deps.Log, w, err)
			return
		}

		resp, err := summarize(context.WithoutCancel(r.Context()), deps, req)
		if err != nil {
			httputil.FailErr(deps.Log, w, err)
			return
		}
		resp.Metadata["filename"] = header.Filename
		httputil.WriteJSON(w, http.StatusOK, resp)
	}
}

// supportedUpload accepts plain text and PDF, falling back to the extension
// when the part has no Content-Type.
func supportedUpload(filename, contentType string) bool {
	if contentType == "" {
		switch strings.ToLower(filepath.Ext(filename)) {
		case ".txt":
			contentType = "text/plain"
		case ".pdf":
			contentType = "application/pdf"
		}
	}
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	return contentType == "text/plain" || contentType == "application/pdf"
}

func formInt(r *http.Request, key string) (int, error) {
	v := r.FormValue(key)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

// extractText returns the text of an upload. PDFs that fail to parse are
// treated as raw text.
func extractText(deps app.Deps, filename string, content []byte) string {
	if !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		return string(content)
	}
	text, err := extractPDF(content)
	if err != nil {
		deps.Log.Warn("pdf extraction failed, using raw bytes", "err", err, "filename", filename)
		return string(content)
	}
	return text
}

func extractPDF(content []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() || page.V.Key("Contents").Kind() == pdf.Null {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String(), nil
}
