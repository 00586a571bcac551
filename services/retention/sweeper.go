package retention

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tech-arch1tect/seminary/internal/apperr"
	"github.com/tech-arch1tect/seminary/services/logging"
)

var ErrUnknownCategory = apperr.NotFound("unknown retention category")

// Category is a table whose rows expire. Model is a pointer to a gorm model
// with id and expires_at columns. FileColumn, when set, names the column
// holding the storage key of the row's backing file.
type Category struct {
	Name       string
	Model      any
	FileColumn string
}

// FileDeleter removes backing files. Deleting a missing file must succeed.
type FileDeleter interface {
	Delete(ctx context.Context, key string) error
}

type Result struct {
	Category   string `json:"category"`
	Matched    int    `json:"matched"`
	Deleted    int64  `json:"deleted"`
	FileErrors int    `json:"fileErrors"`
}

type Options struct {
	Interval   time.Duration
	RunOnStart bool
}

// Sweeper deletes expired rows and their files. Scheduled and manual sweeps
// share SweepCategory and never run at the same time.
type Sweeper struct {
	db     *gorm.DB
	files  FileDeleter
	clock  clockwork.Clock
	logger *logging.Service
	opts   Options

	categories []Category
	byName     map[string]Category

	sweepMu sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSweeper(db *gorm.DB, files FileDeleter, clock clockwork.Clock, logger *logging.Service, opts Options, categories ...Category) (*Sweeper, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if opts.Interval <= 0 {
		opts.Interval = 24 * time.Hour
	}

	s := &Sweeper{
		db:     db,
		files:  files,
		clock:  clock,
		logger: logger.Named("retention"),
		opts:   opts,
		byName: make(map[string]Category, len(categories)),
	}
	for _, c := range categories {
		if c.Name == "" || c.Model == nil {
			return nil, errors.New("retention category needs a name and a model")
		}
		if _, dup := s.byName[c.Name]; dup {
			return nil, fmt.Errorf("duplicate retention category %q", c.Name)
		}
		if c.FileColumn != "" && files == nil {
			return nil, fmt.Errorf("retention category %q has files but no file store is configured", c.Name)
		}
		s.byName[c.Name] = c
		s.categories = append(s.categories, c)
	}
	return s, nil
}

// Categories lists the registered category names in sweep order.
func (s *Sweeper) Categories() []string {
	names := make([]string, len(s.categories))
	for i, c := range s.categories {
		names[i] = c.Name
	}
	return names
}

func (s *Sweeper) SweepCategory(ctx context.Context, name string) (Result, error) {
	c, ok := s.byName[name]
	if !ok {
		return Result{Category: name}, ErrUnknownCategory
	}

	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()
	return s.sweep(ctx, c)
}

// Sweep runs every category in order. A failing category is logged and does
// not stop the others. Cancelling ctx stops the sweep between categories.
func (s *Sweeper) Sweep(ctx context.Context) ([]Result, error) {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()

	results := make([]Result, 0, len(s.categories))
	var errs []error
	for _, c := range s.categories {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := s.sweep(context.WithoutCancel(ctx), c)
		results = append(results, res)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.Name, err))
		}
	}
	return results, errors.Join(errs...)
}

type expiredRow struct {
	ID   uint
	File string
}

func (s *Sweeper) sweep(ctx context.Context, c Category) (Result, error) {
	res := Result{Category: c.Name}
	log := s.logger.With(zap.String("category", c.Name))
	now := s.clock.Now().UTC()

	columns := "id"
	if c.FileColumn != "" {
		columns = "id, " + c.FileColumn + " AS file"
	}

	var rows []expiredRow
	err := s.db.WithContext(ctx).Model(c.Model).
		Select(columns).
		Where("expires_at IS NOT NULL AND expires_at < ?", now).
		Order("id").
		Scan(&rows).Error
	if err != nil {
		log.Error("failed to select expired rows", zap.Error(err))
		return res, fmt.Errorf("select expired rows: %w", err)
	}
	res.Matched = len(rows)
	if len(rows) == 0 {
		log.Debug("nothing to sweep")
		return res, nil
	}

	ids := make([]uint, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
		if row.File == "" {
			continue
		}
		if err := s.files.Delete(ctx, row.File); err != nil {
			res.FileErrors++
			log.Warn("failed to delete backing file",
				zap.Uint("id", row.ID),
				zap.String("file", row.File),
				zap.Error(err))
		}
	}

	result := s.db.WithContext(ctx).Unscoped().Where("id IN ?", ids).Delete(c.Model)
	if result.Error != nil {
		log.Error("failed to delete expired rows", zap.Int("rows", len(ids)), zap.Error(result.Error))
		return res, fmt.Errorf("delete expired rows: %w", result.Error)
	}
	res.Deleted = result.RowsAffected

	log.Info("swept expired rows",
		zap.Int64("deleted", res.Deleted),
		zap.Int("file_errors", res.FileErrors))
	return res, nil
}

// Start runs the sweep loop in the background until Stop is called or ctx is
// cancelled. The loop waits the full interval after each sweep.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	s.logger.Info("retention sweeper started",
		zap.Duration("interval", s.opts.Interval),
		zap.Strings("categories", s.Categories()))

	go func() {
		defer close(done)

		if s.opts.RunOnStart {
			s.runOnce(ctx)
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.clock.After(s.opts.Interval):
				s.runOnce(ctx)
			}
		}
	}()
}

// Stop cancels the loop and waits for it to exit.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	s.logger.Info("retention sweeper stopped")
}

func (s *Sweeper) runOnce(ctx context.Context) {
	results, err := s.Sweep(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("retention sweep finished with errors", zap.Error(err))
	}

	var deleted int64
	for _, r := range results {
		deleted += r.Deleted
	}
	s.logger.Debug("retention sweep complete", zap.Int64("deleted", deleted))
}
