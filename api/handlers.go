package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/docmd/convert"
	"github.com/hazyhaar/docmd/idgen"
	"github.com/hazyhaar/docmd/markup"
	"github.com/hazyhaar/docmd/taskstore"
)

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	deps := s.cfg.Converter.CheckDependencies(r.Context())
	status := "ok"
	code := http.StatusOK
	for _, up := range deps {
		if !up {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, map[string]any{
		"status":       status,
		"dependencies": deps,
		"time":         time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Service) handleListDocuments(w http.ResponseWriter, _ *http.Request) {
	docs, err := s.cfg.Converter.AvailableDocuments()
	if err != nil {
		s.logger.Error("list documents", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}
	if docs == nil {
		docs = []string{}
	}
	writeJSON(w, http.StatusOK, docs)
}

// handleUpload accepts a multipart "file" part. DOCX uploads are stored as
// is; HTML uploads are sanitized before they reach the pipeline.
func (s *Service) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file part")
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	ext := strings.ToLower(filepath.Ext(name))
	if name == "." || name == "/" || (ext != ".docx" && ext != ".html") {
		writeError(w, http.StatusBadRequest, "only .docx and .html files are accepted")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	var dest string
	switch ext {
	case ".docx":
		dest = filepath.Join(s.cfg.Dirs.Docx, name)
	case ".html":
		data = markup.Sanitize(data)
		dest = filepath.Join(s.cfg.Dirs.HTML, name)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		s.logger.Error("store upload", "file", name, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	s.logger.Info("document uploaded", "file", name, "bytes", len(data))
	writeJSON(w, http.StatusOK, map[string]string{"filename": name, "status": "uploaded"})
}

type convertRequest struct {
	Filename  string           `json:"filename"`
	Filenames []string         `json:"filenames"`
	Options   *convert.Options `json:"options"`
}

func (req *convertRequest) options() convert.Options {
	if req.Options != nil {
		return *req.Options
	}
	return convert.DefaultOptions()
}

func decodeConvertRequest(r *http.Request) (*convertRequest, error) {
	defer r.Body.Close()
	req := &convertRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *Service) handleConvert(w http.ResponseWriter, r *http.Request) {
	req, err := decodeConvertRequest(r)
	if err != nil || req.Filename == "" {
		writeError(w, http.StatusBadRequest, "filename is required")
		return
	}

	res := s.cfg.Converter.ConvertDocument(r.Context(), req.Filename, req.options())
	s.storeResult(r.Context(), res)
	code := http.StatusOK
	if res.Status == convert.StatusFailed {
		code = http.StatusUnprocessableEntity
	}
	writeJSON(w, code, res)
}

func (s *Service) handleConvertBatch(w http.ResponseWriter, r *http.Request) {
	req, err := decodeConvertRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	names := req.Filenames
	if len(names) == 0 {
		names, err = s.cfg.Converter.AvailableDocuments()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list documents")
			return
		}
	}
	if len(names) == 0 {
		writeError(w, http.StatusBadRequest, "no documents to convert")
		return
	}

	batch := s.cfg.Converter.ConvertBatch(r.Context(), names, req.options())
	if err := s.cfg.Store.PutBatch(r.Context(), batch); err != nil {
		s.logger.Error("store batch", "batch_id", batch.BatchID, "error", err)
	}
	for _, res := range batch.Results {
		s.storeResult(r.Context(), res)
	}
	writeJSON(w, http.StatusOK, batch)
}

// handleConvertAsync registers a pending task and converts in the
// background; the reserved task id survives the conversion so the eventual
// result is found under the id handed back here.
func (s *Service) handleConvertAsync(w http.ResponseWriter, r *http.Request) {
	req, err := decodeConvertRequest(r)
	if err != nil || req.Filename == "" {
		writeError(w, http.StatusBadRequest, "filename is required")
		return
	}

	taskID := idgen.Default()
	pending := &convert.Result{
		TaskID:    taskID,
		Status:    convert.StatusPending,
		InputFile: req.Filename,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.cfg.Store.PutResult(r.Context(), pending); err != nil {
		s.logger.Error("store pending task", "task_id", taskID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register task")
		return
	}

	opts := req.options()
	go func() {
		ctx := context.Background()
		res := s.cfg.Converter.ConvertDocument(ctx, req.Filename, opts)
		res.TaskID = taskID
		if err := s.cfg.Store.PutResult(ctx, res); err != nil {
			s.logger.Error("store task result", "task_id", taskID, "error", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"task_id": taskID,
		"status":  string(convert.StatusPending),
	})
}

func (s *Service) storeResult(ctx context.Context, res *convert.Result) {
	if err := s.cfg.Store.PutResult(ctx, res); err != nil {
		s.logger.Error("store result", "task_id", res.TaskID, "error", err)
	}
}

func (s *Service) handleGetTask(w http.ResponseWriter, r *http.Request) {
	res, err := s.cfg.Store.GetResult(r.Context(), chi.URLParam(r, "taskID"))
	if errors.Is(err, taskstore.ErrNotFound) {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load task")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Service) handleListTasks(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	tasks, err := s.cfg.Store.ListResults(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}
	if tasks == nil {
		tasks = []*convert.Result{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Service) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	batch, err := s.cfg.Store.GetBatch(r.Context(), chi.URLParam(r, "batchID"))
	if errors.Is(err, taskstore.ErrNotFound) {
		writeError(w, http.StatusNotFound, "batch not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load batch")
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

func (s *Service) handleListBatches(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	batches, err := s.cfg.Store.ListBatches(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list batches")
		return
	}
	if batches == nil {
		batches = []*convert.BatchResult{}
	}
	writeJSON(w, http.StatusOK, batches)
}

// handleDownload serves a produced file. basename is the document stem;
// filename is the artifact inside the markdown output tree.
func (s *Service) handleDownload(w http.ResponseWriter, r *http.Request) {
	basename := filepath.Base(chi.URLParam(r, "basename"))
	filename := filepath.Base(chi.URLParam(r, "filename"))
	if basename == "." || filename == "." {
		writeError(w, http.StatusBadRequest, "invalid path")
		return
	}

	// Markdown output first, intermediate HTML second.
	candidates := []string{
		filepath.Join(s.cfg.Dirs.Markdown, filename),
		filepath.Join(s.cfg.Dirs.HTML, filename),
	}
	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && !info.IsDir() &&
			strings.HasPrefix(strings.TrimSuffix(filename, filepath.Ext(filename)), basename) {
			http.ServeFile(w, r, path)
			return
		}
	}
	writeError(w, http.StatusNotFound, "file not found")
}

// handleDeleteDocument removes every artifact of one document: the input,
// the intermediate HTML, and the markdown output.
func (s *Service) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	basename := filepath.Base(chi.URLParam(r, "basename"))
	if basename == "." {
		writeError(w, http.StatusBadRequest, "invalid document name")
		return
	}

	removed := 0
	for _, path := range []string{
		filepath.Join(s.cfg.Dirs.Docx, basename+".docx"),
		filepath.Join(s.cfg.Dirs.HTML, basename+".html"),
		filepath.Join(s.cfg.Dirs.Markdown, basename+".md"),
	} {
		if err := os.Remove(path); err == nil {
			removed++
		}
	}
	if removed == 0 {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	s.logger.Info("document deleted", "basename", basename, "artifacts", removed)
	writeJSON(w, http.StatusOK, map[string]any{"basename": basename, "removed": removed})
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
