package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Redshadow31/tenf-v2-sub004/internal/app/apperr"
	"github.com/Redshadow31/tenf-v2-sub004/internal/domain/evaluation"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// evaluationRecord maps the evaluations table. Section collections are JSON
// arrays of tagged entries and are validated when read back.
type evaluationRecord struct {
	ID                uint   `gorm:"primaryKey"`
	Login             string `gorm:"column:login"`
	Month             string `gorm:"column:month"`
	Spotlights        datatypes.JSON
	Events            datatypes.JSON
	RaidPoints        int
	SpotlightBonus    int
	Engagement        datatypes.JSONType[evaluation.Engagement]
	FollowValidations datatypes.JSON
	Bonuses           datatypes.JSON
	SectionA          int `gorm:"column:section_a"`
	SectionB          int `gorm:"column:section_b"`
	SectionC          int `gorm:"column:section_c"`
	SectionD          int `gorm:"column:section_d"`
	Total             int
	UpdatedBy         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (evaluationRecord) TableName() string { return "evaluations" }

type gormEvaluationRepo struct {
	db *gorm.DB
}

// NewGormEvaluationRepo cria o repositório de avaliações sobre a tabela
// evaluations criada pelas migrations embutidas.
func NewGormEvaluationRepo(db *gorm.DB) EvaluationRepository {
	return &gormEvaluationRepo{db: db}
}

func (r *gormEvaluationRepo) FindByMemberAndMonth(ctx context.Context, login string, month evaluation.MonthKey) (*evaluation.Evaluation, error) {
	var rec evaluationRecord
	err := r.db.WithContext(ctx).
		Where("login = ? AND month = ?", loginKey(login), string(month)).
		Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrEvaluationNotFound
		}
		return nil, err
	}
	return rec.toDomain()
}

func (r *gormEvaluationRepo) FindByMonth(ctx context.Context, month evaluation.MonthKey) ([]*evaluation.Evaluation, error) {
	var recs []evaluationRecord
	if err := r.db.WithContext(ctx).Where("month = ?", string(month)).Order("login").Find(&recs).Error; err != nil {
		return nil, err
	}
	return recordsToDomain(recs)
}

func (r *gormEvaluationRepo) FindByMember(ctx context.Context, login string) ([]*evaluation.Evaluation, error) {
	var recs []evaluationRecord
	if err := r.db.WithContext(ctx).Where("login = ?", loginKey(login)).Order("month").Find(&recs).Error; err != nil {
		return nil, err
	}
	return recordsToDomain(recs)
}

func (r *gormEvaluationRepo) ListMonths(ctx context.Context) ([]evaluation.MonthKey, error) {
	var months []string
	if err := r.db.WithContext(ctx).Model(&evaluationRecord{}).Distinct("month").Order("month").Pluck("month", &months).Error; err != nil {
		return nil, err
	}
	out := make([]evaluation.MonthKey, len(months))
	for i, m := range months {
		out[i] = evaluation.MonthKey(m)
	}
	return out, nil
}

func (r *gormEvaluationRepo) Upsert(ctx context.Context, login string, month evaluation.MonthKey, patch evaluation.Patch) (*evaluation.Evaluation, error) {
	now := time.Now().UTC()
	rec := evaluationRecord{
		Login:             loginKey(login),
		Month:             string(month),
		Spotlights:        datatypes.JSON("[]"),
		Events:            datatypes.JSON("[]"),
		Engagement:        datatypes.NewJSONType(evaluation.Engagement{}),
		FollowValidations: datatypes.JSON("[]"),
		Bonuses:           datatypes.JSON("[]"),
		UpdatedBy:         patch.UpdatedBy,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	columns := []string{"updated_at"}
	if patch.UpdatedBy != "" {
		columns = append(columns, "updated_by")
	}

	if patch.Spotlights != nil {
		raw, err := evaluation.EncodeEntries(*patch.Spotlights)
		if err != nil {
			return nil, err
		}
		rec.Spotlights = datatypes.JSON(raw)
		columns = append(columns, "spotlights")
	}
	if patch.Events != nil {
		raw, err := evaluation.EncodeEntries(*patch.Events)
		if err != nil {
			return nil, err
		}
		rec.Events = datatypes.JSON(raw)
		columns = append(columns, "events")
	}
	if patch.RaidPoints != nil {
		rec.RaidPoints = *patch.RaidPoints
		columns = append(columns, "raid_points")
	}
	if patch.SpotlightBonus != nil {
		rec.SpotlightBonus = *patch.SpotlightBonus
		columns = append(columns, "spotlight_bonus")
	}
	if patch.Engagement != nil {
		rec.Engagement = datatypes.NewJSONType(*patch.Engagement)
		columns = append(columns, "engagement")
	}
	if patch.FollowValidations != nil {
		raw, err := evaluation.EncodeEntries(*patch.FollowValidations)
		if err != nil {
			return nil, err
		}
		rec.FollowValidations = datatypes.JSON(raw)
		columns = append(columns, "follow_validations")
	}
	if patch.Bonuses != nil {
		raw, err := evaluation.EncodeEntries(*patch.Bonuses)
		if err != nil {
			return nil, err
		}
		rec.Bonuses = datatypes.JSON(raw)
		columns = append(columns, "bonuses")
	}
	if patch.Totals != nil {
		rec.SectionA = patch.Totals.SectionA
		rec.SectionB = patch.Totals.SectionB
		rec.SectionC = patch.Totals.SectionC
		rec.SectionD = patch.Totals.SectionD
		rec.Total = patch.Totals.Total
		columns = append(columns, "section_a", "section_b", "section_c", "section_d", "total")
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "login"}, {Name: "month"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(&rec).Error
	if err != nil {
		return nil, fmt.Errorf("upsert evaluation %s/%s: %w", rec.Login, rec.Month, err)
	}
	return r.FindByMemberAndMonth(ctx, rec.Login, month)
}

func (r *gormEvaluationRepo) Delete(ctx context.Context, login string, month evaluation.MonthKey) error {
	res := r.db.WithContext(ctx).
		Where("login = ? AND month = ?", loginKey(login), string(month)).
		Delete(&evaluationRecord{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.ErrEvaluationNotFound
	}
	return nil
}

func (r *gormEvaluationRepo) DeleteByMonth(ctx context.Context, month evaluation.MonthKey) (int, error) {
	res := r.db.WithContext(ctx).Where("month = ?", string(month)).Delete(&evaluationRecord{})
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}

func recordsToDomain(recs []evaluationRecord) ([]*evaluation.Evaluation, error) {
	out := make([]*evaluation.Evaluation, 0, len(recs))
	for _, rec := range recs {
		e, err := rec.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (rec evaluationRecord) toDomain() (*evaluation.Evaluation, error) {
	e := evaluation.New(rec.Login, evaluation.MonthKey(rec.Month))
	var err error
	if e.Spotlights, err = evaluation.DecodeSpotlights(rec.Spotlights); err != nil {
		return nil, fmt.Errorf("evaluation %s/%s spotlights: %w", rec.Login, rec.Month, err)
	}
	if e.Events, err = evaluation.DecodeEvents(rec.Events); err != nil {
		return nil, fmt.Errorf("evaluation %s/%s events: %w", rec.Login, rec.Month, err)
	}
	if e.FollowValidations, err = evaluation.DecodeFollowValidations(rec.FollowValidations); err != nil {
		return nil, fmt.Errorf("evaluation %s/%s follow validations: %w", rec.Login, rec.Month, err)
	}
	if e.Bonuses, err = evaluation.DecodeBonuses(rec.Bonuses); err != nil {
		return nil, fmt.Errorf("evaluation %s/%s bonuses: %w", rec.Login, rec.Month, err)
	}
	e.RaidPoints = rec.RaidPoints
	e.SpotlightBonus = rec.SpotlightBonus
	e.Engagement = rec.Engagement.Data()
	e.Totals = evaluation.Totals{
		SectionA: rec.SectionA,
		SectionB: rec.SectionB,
		SectionC: rec.SectionC,
		SectionD: rec.SectionD,
		Total:    rec.Total,
	}
	e.UpdatedBy = rec.UpdatedBy
	e.CreatedAt = rec.CreatedAt.UTC()
	e.UpdatedAt = rec.UpdatedAt.UTC()
	return e, nil
}
