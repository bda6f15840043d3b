package services

import (
	"context"
	"errors"
	"log"

	"farcaster-rewards-system/ledger"
	"farcaster-rewards-system/metrics"
	"farcaster-rewards-system/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrTaskNotFound         = errors.New("task not found")
	ErrTaskAlreadyCompleted = errors.New("task already completed")
)

type TaskService struct {
	DB      *gorm.DB
	Rewards *RewardsService
}

func NewTaskService(db *gorm.DB, rewards *RewardsService) *TaskService {
	return &TaskService{DB: db, Rewards: rewards}
}

// SeedDefaultTasks upserts the built-in task set by slug (idempotent across
// restarts; never overwrites admin edits).
func (s *TaskService) SeedDefaultTasks() error {
	for _, t := range models.DefaultTasks {
		task := t
		task.ID = uuid.NewString()
		if err := s.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoNothing: true,
		}).Create(&task).Error; err != nil {
			return err
		}
	}
	return nil
}

// TaskWithStatus is a task plus the requesting user's completion state.
type TaskWithStatus struct {
	models.SocialTask
	Completed bool `json:"completed"`
}

// ListForUser returns active tasks annotated with the user's completions.
func (s *TaskService) ListForUser(ctx context.Context, fid int64) ([]TaskWithStatus, error) {
	var tasks []models.SocialTask
	if err := s.DB.WithContext(ctx).
		Where("active = ?", true).
		Order("created_at ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}

	var completions []models.TaskCompletion
	if err := s.DB.WithContext(ctx).Where("fid = ?", fid).Find(&completions).Error; err != nil {
		return nil, err
	}
	done := make(map[string]bool, len(completions))
	for _, c := range completions {
		done[c.TaskID] = true
	}

	out := make([]TaskWithStatus, len(tasks))
	for i, t := range tasks {
		out[i] = TaskWithStatus{SocialTask: t, Completed: done[t.ID]}
	}
	return out, nil
}

// Complete credits one task for a user. The completion row and the XP
// credit commit together; the composite unique index is the backstop
// against a double completion racing past the pre-check.
func (s *TaskService) Complete(ctx context.Context, fid int64, taskSlug string) (ledger.UserRewardState, *models.SocialTask, error) {
	var task models.SocialTask
	err := s.DB.WithContext(ctx).Where("slug = ? AND active = ?", taskSlug, true).First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ledger.UserRewardState{}, nil, ErrTaskNotFound
	}
	if err != nil {
		return ledger.UserRewardState{}, nil, err
	}

	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.TaskCompletion{}).
		Where("fid = ? AND task_id = ?", fid, task.ID).
		Count(&count).Error; err != nil {
		return ledger.UserRewardState{}, nil, err
	}
	if count > 0 {
		return ledger.UserRewardState{}, nil, ErrTaskAlreadyCompleted
	}

	completion := models.TaskCompletion{
		ID:       uuid.NewString(),
		Fid:      fid,
		TaskID:   task.ID,
		XPEarned: task.XPReward,
	}

	led := s.Rewards.Catalog.Ledger()
	state, err := s.Rewards.mutate(ctx, fid,
		eventInfo{Kind: models.EventTask, TaskSlug: &task.Slug},
		func(cur ledger.UserRewardState) (ledger.UserRewardState, error) {
			return led.ApplyTaskCompletion(cur, task.XPReward)
		},
		func(tx *gorm.DB) error {
			return tx.Create(&completion).Error
		})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ledger.UserRewardState{}, nil, ErrTaskAlreadyCompleted
		}
		return ledger.UserRewardState{}, nil, err
	}

	metrics.TasksTotal.Inc()
	log.Printf("✅ Task %s completed by fid=%d (+%d XP)", task.Slug, fid, task.XPReward)
	return state, &task, nil
}

// CreateTask adds an admin-defined task; the slug derives from the title.
func (s *TaskService) CreateTask(title, description, targetURL, iconURL string, xpReward int64) (*models.SocialTask, error) {
	task := models.SocialTask{
		ID:          uuid.NewString(),
		Slug:        slug.Make(title),
		Title:       title,
		Description: description,
		TargetURL:   targetURL,
		IconURL:     iconURL,
		XPReward:    xpReward,
		Active:      true,
	}
	if err := s.DB.Create(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// SetTaskActive toggles a task without deleting its completion history.
func (s *TaskService) SetTaskActive(taskSlug string, active bool) error {
	res := s.DB.Model(&models.SocialTask{}).
		Where("slug = ?", taskSlug).
		Update("active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// SetTaskIcon stores the uploaded icon URL on the task.
func (s *TaskService) SetTaskIcon(taskSlug, iconURL string) error {
	res := s.DB.Model(&models.SocialTask{}).
		Where("slug = ?", taskSlug).
		Update("icon_url", iconURL)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}
