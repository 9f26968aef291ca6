package service

import (
	"context"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mathieu-neron/modelmart/modelmart-go/internal/apperr"
	"github.com/mathieu-neron/modelmart/modelmart-go/internal/model"
	"github.com/mathieu-neron/modelmart/modelmart-go/internal/validation"
	"github.com/mathieu-neron/modelmart/modelmart-go/pkg/hash"
)

const (
	// Simulated malware scan: always clean.
	cleanScanPoints = 40

	popularFormatPoints = 30
	otherFormatPoints   = 10

	// Awarded once the evaluation stamp is bound to the item.
	integrityPoints = 30
)

// popularFormats are file formats that score the full popularFormat component.
var popularFormats = map[string]bool{
	"safetensors": true,
	"onnx":        true,
	"gguf":        true,
	"pt":          true,
	"pth":         true,
	"h5":          true,
	"keras":       true,
	"pkl":         true,
	"tflite":      true,
	"csv":         true,
	"json":        true,
	"jsonl":       true,
	"parquet":     true,
	"arrow":       true,
}

// TrustStore persists computed trust scores.
type TrustStore interface {
	// GetTrustScore returns nil when no score has been stored for the item.
	GetTrustScore(ctx context.Context, itemID int64) (*model.TrustScore, error)
	// InsertTrustScore stores ts unless a score already exists, and returns
	// whichever record is stored after the call.
	InsertTrustScore(ctx context.Context, ts *model.TrustScore) (*model.TrustScore, error)
}

type TrustService struct {
	store  TrustStore
	cache  *CacheService
	logger zerolog.Logger
	now    func() time.Time
}

func NewTrustService(store TrustStore, cache *CacheService, logger zerolog.Logger) *TrustService {
	return &TrustService{
		store:  store,
		cache:  cache,
		logger: logger.With().Str("component", "trust").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// GetOrCompute returns the stored trust score for itemID, computing and
// storing it on first request. A stored score is never recomputed.
func (s *TrustService) GetOrCompute(ctx context.Context, itemID int64, itemName, contentID string) (*model.TrustScore, error) {
	if itemID < 0 {
		return nil, apperr.Invalid("itemId must be a non-negative integer")
	}
	if cached := s.cache.GetTrust(ctx, itemID); cached != nil {
		return cached, nil
	}

	existing, err := s.store.GetTrustScore(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		s.cache.SetTrust(ctx, existing)
		return existing, nil
	}

	// Computing needs the scoring inputs; plain reads of a stored score do not.
	itemName, errMsg := validation.ValidateItemName(itemName)
	if errMsg != "" {
		return nil, apperr.Invalid(errMsg)
	}
	contentID, errMsg = validation.ValidateContentID(contentID)
	if errMsg != "" {
		return nil, apperr.Invalid(errMsg)
	}

	computed := s.Compute(itemID, itemName, contentID)
	stored, err := s.store.InsertTrustScore(ctx, computed)
	if err != nil {
		return nil, err
	}
	if stored.ContentHash == computed.ContentHash {
		s.logger.Info().Int64("item_id", itemID).Int("total_score", stored.TotalScore).Msg("trust score computed")
	}
	s.cache.SetTrust(ctx, stored)
	return stored, nil
}

// Compute scores an item:
//
//	total = cleanScan + popularFormat + integrityVerified
func (s *TrustService) Compute(itemID int64, itemName, contentID string) *model.TrustScore {
	at := s.now()
	breakdown := model.TrustBreakdown{
		CleanScan:         cleanScanPoints,
		PopularFormat:     FormatPoints(itemName),
		IntegrityVerified: integrityPoints,
	}
	return &model.TrustScore{
		ItemID:      itemID,
		TotalScore:  breakdown.Total(),
		Breakdown:   breakdown,
		ContentHash: hash.EvaluationStamp(itemID, itemName, contentID, at),
		ComputedAt:  at,
	}
}

// FormatPoints scores the declared format of an item name.
func FormatPoints(itemName string) int {
	if IsPopularFormat(itemName) {
		return popularFormatPoints
	}
	return otherFormatPoints
}

// IsPopularFormat reports whether itemName declares a popular file format,
// either as its extension or as a word in the name ("Llama 3 GGUF").
func IsPopularFormat(itemName string) bool {
	name := strings.ToLower(strings.TrimSpace(itemName))
	if ext := strings.TrimPrefix(path.Ext(name), "."); popularFormats[ext] {
		return true
	}
	for _, word := range strings.FieldsFunc(name, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}) {
		if popularFormats[word] {
			return true
		}
	}
	return false
}
