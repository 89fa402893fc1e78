package services

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/cppla/pulso/models"
	"github.com/cppla/pulso/store"
)

// AdvancementThreshold is the completed/published ratio needed to leave a track.
const AdvancementThreshold = 0.80

// trackAdvanceBonus is paid per position of the track being left.
const trackAdvanceBonus = 100

type TrackProgression struct {
	base
	ledger *Ledger
}

func NewTrackProgression(b base, ledger *Ledger) *TrackProgression {
	return &TrackProgression{base: b.named("track"), ledger: ledger}
}

type Advancement struct {
	Advanced             bool                `json:"advanced"`
	NewTrack             *models.Track       `json:"new_track,omitempty"`
	CompletionPercentage int                 `json:"completion_percentage"`
	Bonus                *models.LedgerEntry `json:"bonus,omitempty"`
}

func percentOf(done, total int64) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(done) / float64(total) * 100))
}

func trackIndex(tracks []models.Track, id string) int {
	for i := range tracks {
		if tracks[i].ID == id {
			return i
		}
	}
	return -1
}

// CheckAdvancement moves the user to the next track once enough of the current one is done.
// A repeated call right after advancing finds an empty new track and does nothing.
func (t *TrackProgression) CheckAdvancement(ctx context.Context, tx store.Store, userID string) (*Advancement, error) {
	profile, err := tx.LockProfile(ctx, userID)
	if err != nil {
		return nil, storeErr("profile", err)
	}
	if profile.CurrentTrackID == nil {
		return &Advancement{}, nil
	}

	tracks, err := tx.ListTracks(ctx)
	if err != nil {
		return nil, storeErr("tracks", err)
	}
	idx := trackIndex(tracks, *profile.CurrentTrackID)
	if idx < 0 {
		return &Advancement{}, nil
	}
	if idx == len(tracks)-1 {
		return &Advancement{CompletionPercentage: 100}, nil
	}

	current := tracks[idx]
	published, err := tx.CountPublishedContent(ctx, current.ID)
	if err != nil {
		return nil, storeErr("count published content", err)
	}
	if published == 0 {
		return &Advancement{}, nil
	}
	completed, err := tx.CountCompletedContent(ctx, userID, current.ID)
	if err != nil {
		return nil, storeErr("count completed content", err)
	}

	pct := percentOf(completed, published)
	if float64(completed)/float64(published) < AdvancementThreshold {
		return &Advancement{CompletionPercentage: pct}, nil
	}

	next := tracks[idx+1]
	if err := tx.SetProfileTrack(ctx, userID, next.ID, false); err != nil {
		return nil, storeErr("advance track", err)
	}
	bonus, err := t.ledger.Append(ctx, tx, userID, int64((idx+1)*trackAdvanceBonus), models.SourceTrackAdvance, &next.ID,
		next.Slug != tracks[0].Slug, fmt.Sprintf("Avançou para a trilha %s", next.Name))
	if err != nil {
		return nil, err
	}

	t.log.Info("track advanced",
		zap.String("user_id", userID),
		zap.String("from", current.Slug),
		zap.String("to", next.Slug),
	)
	return &Advancement{Advanced: true, NewTrack: &next, CompletionPercentage: 100, Bonus: bonus}, nil
}

// Catalog lists the tracks in curriculum order.
func (t *TrackProgression) Catalog(ctx context.Context) ([]models.Track, error) {
	tracks, err := t.store.ListTracks(ctx)
	if err != nil {
		return nil, storeErr("tracks", err)
	}
	return tracks, nil
}

// TrackProgress is the read model of the user's position in the curriculum.
type TrackProgress struct {
	CompletedCount   int64   `json:"completed_count"`
	TotalCount       int64   `json:"total_count"`
	Percentage       int     `json:"percentage"`
	CurrentTrackSlug *string `json:"current_track_slug"`
	NextTrackSlug    *string `json:"next_track_slug"`
	Threshold        int     `json:"threshold"`
}

func (t *TrackProgression) Progress(ctx context.Context, userID string) (*TrackProgress, error) {
	out := &TrackProgress{Threshold: int(math.Round(AdvancementThreshold * 100))}

	profile, err := t.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, storeErr("profile", err)
	}
	if profile.CurrentTrackID == nil {
		return out, nil
	}
	tracks, err := t.store.ListTracks(ctx)
	if err != nil {
		return nil, storeErr("tracks", err)
	}
	idx := trackIndex(tracks, *profile.CurrentTrackID)
	if idx < 0 {
		return out, nil
	}
	out.CurrentTrackSlug = &tracks[idx].Slug
	if idx < len(tracks)-1 {
		out.NextTrackSlug = &tracks[idx+1].Slug
	}

	if out.TotalCount, err = t.store.CountPublishedContent(ctx, tracks[idx].ID); err != nil {
		return nil, storeErr("count published content", err)
	}
	if out.CompletedCount, err = t.store.CountCompletedContent(ctx, userID, tracks[idx].ID); err != nil {
		return nil, storeErr("count completed content", err)
	}
	out.Percentage = percentOf(out.CompletedCount, out.TotalCount)
	return out, nil
}

// DiagnosisAnswers are the onboarding questionnaire answers.
type DiagnosisAnswers struct {
	HasOverdueDebt        bool `json:"has_overdue_debt"`
	CanSaveMonthly        bool `json:"can_save_monthly"`
	HasEmergencyFund      bool `json:"has_emergency_fund"`
	KnowsRetirementTarget bool `json:"knows_retirement_target"`
	UnderstandsPGBLVGBL   bool `json:"understands_pgbl_vgbl"`
}

// placement returns the position in the ordered catalog the answers point to.
func (a DiagnosisAnswers) placement() int {
	switch {
	case a.HasOverdueDebt:
		return 0
	case !a.CanSaveMonthly || !a.HasEmergencyFund:
		return 1
	case !a.KnowsRetirementTarget || !a.UnderstandsPGBLVGBL:
		return 2
	default:
		return 3
	}
}

// AssignFromDiagnosis stores the answers and places the user on the matching track.
// Retaking the questionnaire replaces the previous answers and placement.
func (t *TrackProgression) AssignFromDiagnosis(ctx context.Context, userID string, answers DiagnosisAnswers) (*models.Track, error) {
	var assigned models.Track
	err := t.inTx(ctx, "diagnosis", func(ctx context.Context, tx store.Store) error {
		if _, err := tx.LockProfile(ctx, userID); err != nil {
			return storeErr("profile", err)
		}
		tracks, err := tx.ListTracks(ctx)
		if err != nil {
			return storeErr("tracks", err)
		}
		if len(tracks) == 0 {
			return notFound("track catalog is empty")
		}
		assigned = tracks[min(answers.placement(), len(tracks)-1)]

		if err := tx.SaveDiagnosis(ctx, &models.DiagnosisResponse{
			UserID:                userID,
			HasOverdueDebt:        answers.HasOverdueDebt,
			CanSaveMonthly:        answers.CanSaveMonthly,
			HasEmergencyFund:      answers.HasEmergencyFund,
			KnowsRetirementTarget: answers.KnowsRetirementTarget,
			UnderstandsPGBLVGBL:   answers.UnderstandsPGBLVGBL,
			AssignedTrackSlug:     assigned.Slug,
		}); err != nil {
			return storeErr("save diagnosis", err)
		}
		return storeErr("assign track", tx.SetProfileTrack(ctx, userID, assigned.ID, true))
	})
	if err != nil {
		return nil, err
	}
	t.log.Info("track assigned", zap.String("user_id", userID), zap.String("track", assigned.Slug))
	return &assigned, nil
}
