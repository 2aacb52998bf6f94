package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/franckalain/healthscanner/internal/database"
	"github.com/franckalain/healthscanner/internal/health"
	"github.com/franckalain/healthscanner/internal/logger"
	"github.com/franckalain/healthscanner/internal/lookup"
	"github.com/franckalain/healthscanner/internal/metrics"
	"github.com/franckalain/healthscanner/internal/models"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// scanResult is the payload of a scan_result message. Found is false when
// the barcode was unknown and the placeholder record was scored instead.
type scanResult struct {
	Product   *models.Product `json:"product"`
	HistoryID string          `json:"history_id"`
	Found     bool            `json:"found"`
}

// errInvalidInput marks failures caused by the client's data rather than
// by the server.
type errInvalidInput struct{ err error }

func (e errInvalidInput) Error() string { return e.err.Error() }
func (e errInvalidInput) Unwrap() error { return e.err }

// scoreAndSave runs the engine over p with the current criteria, attaches the
// analysis and persists the product together with a new history entry.
func (s *Server) scoreAndSave(ctx context.Context, p *models.Product, source string) (string, error) {
	if err := health.ValidateFacts(p.NutritionFacts); err != nil {
		return "", errInvalidInput{err}
	}

	analysis := health.Analyze(p.NutritionFacts, p.Ingredients, s.criteria.Get())
	p.HealthAnalysis = analysis
	p.HealthScore = analysis.Score

	now := s.now()
	if p.ScannedAt.IsZero() {
		p.ScannedAt = now
	}

	if err := s.db.SaveProduct(ctx, p); err != nil {
		return "", fmt.Errorf("save product: %w", err)
	}
	entry := &models.ScanHistory{
		ID:        uuid.New().String(),
		ProductID: p.ID,
		Timestamp: now,
	}
	if err := s.db.SaveScanHistory(ctx, entry); err != nil {
		return "", fmt.Errorf("save scan history: %w", err)
	}

	s.metrics.RecordScan(source, analysis)
	return entry.ID, nil
}

func (s *Server) replyScan(conn *websocket.Conn, log *logger.Logger, p *models.Product, source string, found bool, historyID string, err error) {
	if err != nil {
		var invalid errInvalidInput
		if errors.As(err, &invalid) {
			s.sendError(conn, invalid.Error())
			return
		}
		log.Error("server: scan failed", "product", p.ID, "err", err)
		s.sendError(conn, "Failed to save scan")
		return
	}

	log.Info("server: product scored", "product", p.ID, "source", source,
		"score", p.HealthScore, "category", p.HealthAnalysis.Category)
	s.sendMessage(conn, "scan_result", scanResult{Product: p, HistoryID: historyID, Found: found})
}

func (s *Server) handleScan(ctx context.Context, conn *websocket.Conn, log *logger.Logger, data json.RawMessage) {
	var req struct {
		Barcode string `json:"barcode"`
	}
	if err := decodeData(data, &req); err != nil || strings.TrimSpace(req.Barcode) == "" {
		s.sendError(conn, "Invalid barcode")
		return
	}
	barcode := strings.TrimSpace(req.Barcode)

	ctx, cancel := context.WithTimeout(ctx, scanTimeout)
	defer cancel()

	product, err := s.products.GetProductByBarcode(ctx, barcode)
	if err != nil {
		log.Warn("server: product lookup failed", "barcode", barcode, "err", err)
		product = nil
	}

	// Without a lookup result, a product saved by an earlier scan is reused
	// so the placeholder never overwrites it.
	if product == nil {
		product, err = s.db.GetProduct(ctx, barcode)
		if err != nil {
			log.Error("server: retrieve stored product", "barcode", barcode, "err", err)
			s.sendError(conn, "Failed to retrieve product")
			return
		}
	}

	found := product != nil
	source := metrics.SourceBarcode
	if !found {
		product = lookup.FallbackProduct(barcode, s.now())
		source = metrics.SourceFallback
	}

	historyID, err := s.scoreAndSave(ctx, product, source)
	s.replyScan(conn, log, product, source, found, historyID, err)
}

func (s *Server) handleScanLabel(ctx context.Context, conn *websocket.Conn, log *logger.Logger, data json.RawMessage) {
	if s.model == nil {
		s.sendError(conn, "Label scanning is not enabled")
		return
	}

	var req struct {
		Image   string `json:"image"`
		Barcode string `json:"barcode"`
	}
	if err := decodeData(data, &req); err != nil || req.Image == "" {
		s.sendError(conn, "Invalid image data")
		return
	}

	imageData, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		log.Debug("server: decode image", "err", err)
		s.sendError(conn, "Invalid image format")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, scanTimeout)
	defer cancel()

	reading, err := s.model.ProcessImage(ctx, imageData)
	if err != nil {
		log.Warn("server: label reading failed", "err", err)
		s.sendError(conn, "Failed to process image")
		return
	}

	id := strings.TrimSpace(req.Barcode)
	if id == "" {
		id = reading.ID
	}
	product := &models.Product{
		ID:             id,
		Barcode:        strings.TrimSpace(req.Barcode),
		Name:           orDefault(reading.Name, "Unknown Product"),
		Brand:          orDefault(reading.Brand, "Unknown Brand"),
		Ingredients:    reading.Ingredients,
		NutritionFacts: reading.NutritionFacts,
		HealthAnalysis: models.DefaultAnalysis(),
	}

	historyID, err := s.scoreAndSave(ctx, product, metrics.SourceLabel)
	s.replyScan(conn, log, product, metrics.SourceLabel, true, historyID, err)
}

func (s *Server) handleManualEntry(ctx context.Context, conn *websocket.Conn, log *logger.Logger, data json.RawMessage) {
	var req struct {
		Barcode        string                `json:"barcode"`
		Name           string                `json:"name"`
		Brand          string                `json:"brand"`
		ImageURL       string                `json:"imageUrl"`
		Ingredients    []string              `json:"ingredients"`
		NutritionFacts models.NutritionFacts `json:"nutritionFacts"`
	}
	if err := decodeData(data, &req); err != nil {
		s.sendError(conn, "Invalid product data")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		s.sendError(conn, "Product name is required")
		return
	}

	id := strings.TrimSpace(req.Barcode)
	if id == "" {
		id = uuid.New().String()
	}
	ingredients := make([]string, 0, len(req.Ingredients))
	for _, ing := range req.Ingredients {
		if ing = strings.TrimSpace(ing); ing != "" {
			ingredients = append(ingredients, ing)
		}
	}
	if req.NutritionFacts.ServingSize == "" {
		req.NutritionFacts.ServingSize = "100g"
	}

	product := &models.Product{
		ID:             id,
		Barcode:        strings.TrimSpace(req.Barcode),
		Name:           strings.TrimSpace(req.Name),
		Brand:          orDefault(req.Brand, "Unknown Brand"),
		ImageURL:       req.ImageURL,
		Ingredients:    ingredients,
		NutritionFacts: req.NutritionFacts,
		HealthAnalysis: models.DefaultAnalysis(),
	}

	historyID, err := s.scoreAndSave(ctx, product, metrics.SourceManual)
	s.replyScan(conn, log, product, metrics.SourceManual, true, historyID, err)
}

func (s *Server) handleGetHistory(ctx context.Context, conn *websocket.Conn, log *logger.Logger, data json.RawMessage) {
	var req struct {
		Limit int `json:"limit"`
	}
	if err := decodeData(data, &req); err != nil {
		s.sendError(conn, "Invalid history request")
		return
	}
	limit := req.Limit
	if limit <= 0 {
		limit = s.opts.HistoryLimit
	}

	items, err := s.db.GetScanHistory(ctx, limit)
	if err != nil {
		log.Error("server: retrieve history", "err", err)
		s.sendError(conn, "Failed to retrieve history")
		return
	}

	total := 0
	for _, item := range items {
		total += item.Product.HealthScore
	}

	s.sendMessage(conn, "history", map[string]any{
		"items":         items,
		"average_score": health.AverageScore(total, len(items)),
	})
}

func (s *Server) handleGetProduct(ctx context.Context, conn *websocket.Conn, log *logger.Logger, data json.RawMessage) {
	var req struct {
		ID string `json:"id"`
	}
	if err := decodeData(data, &req); err != nil || req.ID == "" {
		s.sendError(conn, "Missing product ID")
		return
	}

	product, err := s.db.GetProduct(ctx, req.ID)
	if err != nil {
		log.Error("server: retrieve product", "product", req.ID, "err", err)
		s.sendError(conn, "Failed to retrieve product")
		return
	}
	if product == nil {
		s.sendError(conn, "Product not found")
		return
	}
	s.sendMessage(conn, "product", product)
}

func (s *Server) handleDeleteHistory(ctx context.Context, conn *websocket.Conn, log *logger.Logger, data json.RawMessage) {
	var req struct {
		ID string `json:"id"`
	}
	if err := decodeData(data, &req); err != nil || req.ID == "" {
		s.sendError(conn, "Missing history ID")
		return
	}

	err := s.db.DeleteScanHistory(ctx, req.ID)
	if errors.Is(err, database.ErrNotFound) {
		s.sendError(conn, "History entry not found")
		return
	}
	if err != nil {
		log.Error("server: delete history", "id", req.ID, "err", err)
		s.sendError(conn, "Failed to delete history entry")
		return
	}
	s.sendMessage(conn, "history_deleted", map[string]string{"id": req.ID})
}

func (s *Server) handleClearHistory(ctx context.Context, conn *websocket.Conn, log *logger.Logger) {
	n, err := s.db.ClearAllHistory(ctx)
	if err != nil {
		log.Error("server: clear history", "err", err)
		s.sendError(conn, "Failed to clear history")
		return
	}
	log.Info("server: history cleared", "deleted", n)
	s.sendMessage(conn, "history_cleared", map[string]int64{"deleted": n})
}

func (s *Server) handleCompare(ctx context.Context, conn *websocket.Conn, log *logger.Logger, data json.RawMessage) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := decodeData(data, &req); err != nil {
		s.sendError(conn, "Invalid comparison request")
		return
	}

	entries, err := s.db.GetScanHistoryByIDs(ctx, req.IDs)
	if err != nil {
		log.Error("server: retrieve comparison", "err", err)
		s.sendError(conn, "Failed to retrieve products")
		return
	}

	products := make([]models.Product, 0, len(entries))
	for _, e := range entries {
		products = append(products, *e.Product)
	}
	s.sendMessage(conn, "comparison", health.Compare(products))
}

func (s *Server) handleUpdateCriteria(conn *websocket.Conn, log *logger.Logger, data json.RawMessage) {
	var update models.CriteriaUpdate
	if err := decodeData(data, &update); err != nil {
		s.sendError(conn, "Invalid criteria")
		return
	}
	if err := health.ValidateUpdate(update); err != nil {
		s.sendError(conn, err.Error())
		return
	}

	if update.IsEmpty() {
		s.sendMessage(conn, "criteria", s.criteria.Get())
		return
	}

	criteria := s.criteria.Update(update)
	log.Info("server: criteria updated", "criteria", criteria)
	s.sendMessage(conn, "criteria", criteria)
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}
