// Package service holds the business logic of both processes. DiaryService
// ties the entry store, local persistence and the remote stores together and
// is the only place that mutates the diary. SnapshotService and
// MirrorService back the server endpoints those remote stores talk to.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atinyakov/FoodDiary/internal/client/remote"
	"github.com/atinyakov/FoodDiary/internal/diary"
	"github.com/atinyakov/FoodDiary/internal/export"
	"github.com/atinyakov/FoodDiary/internal/models"
	"github.com/atinyakov/FoodDiary/internal/stats"
)

// DefaultMirrorTimeout bounds background create and delete calls to the mirror.
const DefaultMirrorTimeout = 5 * time.Second

const (
	msgAdded          = "Запись добавлена!"
	msgUpdated        = "Запись обновлена"
	msgDeleted        = "Запись удалена"
	msgNoProducts     = "Добавьте хотя бы один продукт"
	msgDownloaded     = "Данные загружены из MySQL"
	msgDownloadFailed = "Ошибка синхронизации с MySQL"
	msgUploaded       = "Данные выгружены в MySQL"
	msgUploadFailed   = "Ошибка выгрузки в MySQL"
	msgNothingExport  = "Нет данных для экспорта"
	msgExported       = "CSV-файл скачан!"
	msgConfigSaved    = "Настройки MySQL сохранены"
	msgConfigMissing  = "Заполните все обязательные поля"
	msgDisconnected   = "MySQL отключен"
	msgConnected      = "Подключение успешно!"
	msgNetworkError   = "Ошибка сети. Проверьте параметры подключения."
)

// LocalStore persists the diary and the mirror settings on this machine.
type LocalStore interface {
	SaveEntries(ctx context.Context, entries []models.Entry) error
	LoadEntries(ctx context.Context) []models.Entry
	SaveConfig(ctx context.Context, cfg models.ConnConfig) error
	LoadConfig(ctx context.Context) *models.ConnConfig
	ClearConfig(ctx context.Context) error
}

// Snapshots is the remote store holding the last pushed copy of the diary.
type Snapshots interface {
	Pull(ctx context.Context) ([]models.Entry, error)
	Push(ctx context.Context, entries []models.Entry) error
}

// Mirror is the relational mirror reached through the proxy.
type Mirror interface {
	SetConfig(cfg *models.ConnConfig)
	Config() *models.ConnConfig
	Create(ctx context.Context, e models.Entry) error
	Delete(ctx context.Context, id string) error
	Upload(ctx context.Context, entries []models.Entry) error
	FetchAll(ctx context.Context) ([]models.Entry, error)
	Test(ctx context.Context, cfg models.ConnConfig) error
}

// Options tunes a DiaryService. Zero values fall back to defaults.
type Options struct {
	PushDelay     time.Duration
	MirrorTimeout time.Duration
	// Location is used for dates in exports.
	Location *time.Location
	Now      func() time.Time
}

// DiaryService applies user actions to the diary.
// Local state always changes synchronously; remote calls run in the background
// and never block or fail the action that caused them.
type DiaryService struct {
	store     *diary.Store
	local     LocalStore
	snapshots Snapshots
	mirror    Mirror
	log       *zap.Logger
	opts      Options

	// writeMu orders each store mutation with its local save, so the
	// last save always holds the latest state.
	writeMu sync.Mutex

	online     *remote.Status
	syncing    *remote.Status
	push       *remote.Debouncer
	pushCtx    context.Context
	cancelPush context.CancelFunc

	bgMu   sync.Mutex
	closed bool
	bg     sync.WaitGroup

	notesMu sync.Mutex
	notes   []models.Notification
}

// NewDiaryService wires a service. snapshots and mirror may be nil, which
// disables the corresponding remote store.
func NewDiaryService(local LocalStore, snapshots Snapshots, mirror Mirror, log *zap.Logger, opts Options) *DiaryService {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.MirrorTimeout <= 0 {
		opts.MirrorTimeout = DefaultMirrorTimeout
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &DiaryService{
		store:     diary.NewStore(),
		local:     local,
		snapshots: snapshots,
		mirror:    mirror,
		log:       log,
		opts:      opts,
		online:    remote.NewStatus(),
		syncing:   remote.NewStatus(),
	}
	s.pushCtx, s.cancelPush = context.WithCancel(context.Background())
	s.push = remote.NewDebouncer(opts.PushDelay, s.pushSnapshot)
	return s
}

// Init restores the mirror settings and loads the diary, preferring the
// remote snapshot and falling back to the local copy.
func (s *DiaryService) Init(ctx context.Context) {
	if s.mirror != nil {
		s.mirror.SetConfig(s.local.LoadConfig(ctx))
	}
	if s.LoadFromCloud(ctx) {
		return
	}
	s.store.ReplaceAll(s.local.LoadEntries(ctx))
	s.log.Info("diary loaded from local storage", zap.Int("entries", s.store.Len()))
}

// AddEntry creates a new entry from products and prepends it to the diary.
func (s *DiaryService) AddEntry(ctx context.Context, products []string, hasAllergy bool) (models.Entry, error) {
	products = models.NormalizeProducts(products)
	if len(products) == 0 {
		s.notify(models.LevelError, msgNoProducts)
		return models.Entry{}, diary.ErrNoProducts
	}

	id, err := uuid.NewV7()
	if err != nil {
		return models.Entry{}, fmt.Errorf("generate id: %w", err)
	}
	e := models.Entry{
		ID:         id.String(),
		Products:   products,
		Date:       s.opts.Now().Truncate(time.Millisecond),
		HasAllergy: hasAllergy,
	}
	s.writeMu.Lock()
	if err := s.store.Add(e); err != nil {
		s.writeMu.Unlock()
		return models.Entry{}, err
	}
	s.changed(ctx)
	s.writeMu.Unlock()

	s.notify(models.LevelSuccess, msgAdded)

	if s.mirrorConfigured() {
		s.background(ctx, func(ctx context.Context) {
			ctx, cancel := context.WithTimeout(ctx, s.opts.MirrorTimeout)
			defer cancel()
			if err := s.mirror.Create(ctx, e); err != nil {
				s.log.Warn("mirror save failed, local save succeeded", zap.String("id", e.ID), zap.Error(err))
			}
		})
	}
	return e, nil
}

// UpdateEntry applies an edit session. An unknown id is ignored.
func (s *DiaryService) UpdateEntry(ctx context.Context, edit models.EditingEntry) error {
	products := models.NormalizeProducts(edit.Products)
	if len(products) == 0 {
		s.notify(models.LevelError, msgNoProducts)
		return diary.ErrNoProducts
	}
	s.writeMu.Lock()
	if !s.store.Update(edit.ID, products, edit.HasAllergy) {
		s.writeMu.Unlock()
		return nil
	}
	s.changed(ctx)
	s.writeMu.Unlock()

	s.notify(models.LevelSuccess, msgUpdated)

	if s.mirrorConfigured() {
		s.background(ctx, func(ctx context.Context) {
			if err := s.mirror.Upload(ctx, s.store.List()); err != nil {
				s.log.Warn("mirror upload after edit failed", zap.String("id", edit.ID), zap.Error(err))
			}
		})
	}
	return nil
}

// DeleteEntry removes the entry with the given id. An unknown id is ignored.
func (s *DiaryService) DeleteEntry(ctx context.Context, id string) {
	s.writeMu.Lock()
	if !s.store.Remove(id) {
		s.writeMu.Unlock()
		return
	}
	s.changed(ctx)
	s.writeMu.Unlock()

	s.notify(models.LevelSuccess, msgDeleted)

	if s.mirrorConfigured() {
		s.background(ctx, func(ctx context.Context) {
			ctx, cancel := context.WithTimeout(ctx, s.opts.MirrorTimeout)
			defer cancel()
			if err := s.mirror.Delete(ctx, id); err != nil {
				s.log.Warn("mirror delete failed, local delete succeeded", zap.String("id", id), zap.Error(err))
			}
		})
	}
}

// LoadFromCloud replaces the diary with the remote snapshot. On failure
// the diary and the local copy are left untouched and false is returned.
func (s *DiaryService) LoadFromCloud(ctx context.Context) bool {
	if s.snapshots == nil {
		return false
	}

	gen := s.online.Begin()
	entries, err := s.snapshots.Pull(ctx)
	if err != nil {
		s.online.Finish(gen, false)
		s.log.Warn("cloud sync unavailable, using local storage", zap.Error(err))
		return false
	}
	if !s.online.Finish(gen, true) {
		s.log.Debug("discarding superseded cloud pull")
		return false
	}

	s.writeMu.Lock()
	if dropped := s.store.ReplaceAll(entries); dropped > 0 {
		s.log.Warn("dropped invalid entries from cloud snapshot", zap.Int("dropped", dropped))
	}
	s.persist(ctx)
	s.writeMu.Unlock()
	s.log.Info("diary loaded from cloud", zap.Int("entries", s.store.Len()))
	return true
}

// DownloadFromMirror replaces the diary with the mirror contents. An empty
// mirror never wipes the diary.
func (s *DiaryService) DownloadFromMirror(ctx context.Context) error {
	if !s.mirrorConfigured() {
		return remote.ErrNotConfigured
	}

	gen := s.syncing.Begin()
	entries, err := s.mirror.FetchAll(ctx)
	s.syncing.Finish(gen, err == nil)
	if err != nil {
		s.log.Warn("mirror download failed", zap.Error(err))
		s.notify(models.LevelError, msgDownloadFailed)
		return err
	}

	if len(entries) > 0 {
		s.writeMu.Lock()
		if dropped := s.store.ReplaceAll(entries); dropped > 0 {
			s.log.Warn("dropped invalid entries from mirror", zap.Int("dropped", dropped))
		}
		s.changed(ctx)
		s.writeMu.Unlock()
	}
	s.notify(models.LevelSuccess, msgDownloaded)
	return nil
}

// UploadToMirror overwrites the mirror with the diary.
func (s *DiaryService) UploadToMirror(ctx context.Context) error {
	if !s.mirrorConfigured() {
		return remote.ErrNotConfigured
	}

	gen := s.syncing.Begin()
	err := s.mirror.Upload(ctx, s.store.List())
	s.syncing.Finish(gen, err == nil)
	if err != nil {
		s.log.Warn("mirror upload failed", zap.Error(err))
		s.notify(models.LevelError, msgUploadFailed)
		return err
	}
	s.notify(models.LevelSuccess, msgUploaded)
	return nil
}

// SetConfig stores new mirror settings and then downloads the mirror
// contents in the background.
func (s *DiaryService) SetConfig(ctx context.Context, cfg models.ConnConfig) error {
	if s.mirror == nil {
		return remote.ErrNotConfigured
	}
	if err := cfg.Validate(); err != nil {
		s.notify(models.LevelError, msgConfigMissing)
		return err
	}
	cfg = cfg.WithDefaults()
	if err := s.local.SaveConfig(ctx, cfg); err != nil {
		return fmt.Errorf("save mirror config: %w", err)
	}
	s.mirror.SetConfig(&cfg)
	s.notify(models.LevelSuccess, msgConfigSaved)

	s.background(ctx, func(ctx context.Context) {
		_ = s.DownloadFromMirror(ctx)
	})
	return nil
}

// Disconnect forgets the mirror settings.
func (s *DiaryService) Disconnect(ctx context.Context) error {
	if err := s.local.ClearConfig(ctx); err != nil {
		return fmt.Errorf("clear mirror config: %w", err)
	}
	if s.mirror != nil {
		s.mirror.SetConfig(nil)
	}
	s.notify(models.LevelSuccess, msgDisconnected)
	return nil
}

// TestConnection checks cfg against the proxy without storing it.
func (s *DiaryService) TestConnection(ctx context.Context, cfg models.ConnConfig) error {
	if s.mirror == nil {
		return remote.ErrNotConfigured
	}
	if err := cfg.Validate(); err != nil {
		s.notify(models.LevelError, msgConfigMissing)
		return err
	}

	err := s.mirror.Test(ctx, cfg)
	var se *remote.StatusError
	switch {
	case err == nil:
		s.notify(models.LevelSuccess, msgConnected)
	case errors.As(err, &se):
		msg := se.Message
		if msg == "" {
			msg = "Неизвестная ошибка"
		}
		s.notify(models.LevelError, "Ошибка подключения: "+msg)
	default:
		s.notify(models.LevelError, msgNetworkError)
	}
	return err
}

// Config returns the current mirror settings or nil.
func (s *DiaryService) Config() *models.ConnConfig {
	if s.mirror == nil {
		return nil
	}
	return s.mirror.Config()
}

// Entries returns the diary filtered by f, newest first.
func (s *DiaryService) Entries(f models.AllergyFilter) []models.Entry {
	return s.store.Filter(f)
}

// Entry returns a single entry.
func (s *DiaryService) Entry(id string) (models.Entry, bool) {
	return s.store.Get(id)
}

// Suggestions returns known product names matching query.
func (s *DiaryService) Suggestions(query string) []string {
	return s.store.Suggest(query)
}

// Stats recomputes the allergy statistics.
func (s *DiaryService) Stats() stats.Summary {
	return stats.Summarize(s.store.List())
}

// Export writes the diary as CSV to w.
func (s *DiaryService) Export(w io.Writer) error {
	err := export.Write(w, s.store.List(), s.opts.Location)
	switch {
	case errors.Is(err, export.ErrNothingToExport):
		s.notify(models.LevelError, msgNothingExport)
	case err == nil:
		s.notify(models.LevelSuccess, msgExported)
	}
	return err
}

// ExportFileName returns the download name for an export made now.
func (s *DiaryService) ExportFileName() string {
	return export.FileName(s.opts.Now().In(s.opts.Location))
}

// Online reports whether the last snapshot call succeeded.
func (s *DiaryService) Online() bool { return s.online.Online() }

// Syncing reports whether an explicit mirror transfer is running.
func (s *DiaryService) Syncing() bool { return s.syncing.Busy() }

// Notifications drains the pending user notifications.
func (s *DiaryService) Notifications() []models.Notification {
	s.notesMu.Lock()
	defer s.notesMu.Unlock()
	out := s.notes
	s.notes = nil
	if out == nil {
		out = []models.Notification{}
	}
	return out
}

// Close pushes a pending snapshot and waits for background calls. When ctx
// ends first, the push in flight is cancelled and ctx.Err() is returned.
func (s *DiaryService) Close(ctx context.Context) error {
	s.bgMu.Lock()
	s.closed = true
	s.bgMu.Unlock()

	done := make(chan struct{})
	go func() {
		s.push.Close()
		s.bg.Wait()
		close(done)
	}()

	defer s.cancelPush()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// changed persists the diary and schedules a snapshot push.
// Callers hold writeMu.
func (s *DiaryService) changed(ctx context.Context) {
	s.persist(ctx)
	if s.snapshots != nil {
		s.push.Trigger()
	}
}

func (s *DiaryService) persist(ctx context.Context) {
	if err := s.local.SaveEntries(ctx, s.store.List()); err != nil {
		s.log.Error("failed to save diary locally", zap.Error(err))
	}
}

// pushSnapshot runs on the debouncer and sends the diary as it is now.
func (s *DiaryService) pushSnapshot() {
	entries := s.store.List()
	gen := s.online.Begin()
	err := s.snapshots.Push(s.pushCtx, entries)
	s.online.Finish(gen, err == nil)
	if err != nil {
		s.log.Warn("cloud sync failed", zap.Error(err))
		return
	}
	s.log.Debug("diary pushed to cloud", zap.Int("entries", len(entries)))
}

func (s *DiaryService) mirrorConfigured() bool {
	return s.mirror != nil && s.mirror.Config() != nil
}

// background runs fn detached from the caller's cancellation.
func (s *DiaryService) background(ctx context.Context, fn func(ctx context.Context)) {
	s.bgMu.Lock()
	defer s.bgMu.Unlock()
	if s.closed {
		return
	}
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		fn(context.WithoutCancel(ctx))
	}()
}

func (s *DiaryService) notify(level models.Level, msg string) {
	s.notesMu.Lock()
	defer s.notesMu.Unlock()
	s.notes = append(s.notes, models.Notification{Level: level, Message: msg})
}
