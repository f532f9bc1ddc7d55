// Package live runs the per-course live session state machine: start, join and stop.
package live

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/liveclass/internal/access"
	"github.com/aura-webinar/liveclass/internal/livestate"
	"github.com/aura-webinar/liveclass/internal/models"
	"github.com/aura-webinar/liveclass/internal/recordings"
	"github.com/aura-webinar/liveclass/internal/rtc"
	"github.com/aura-webinar/liveclass/internal/schedule"
)

const (
	defaultCredentialTTL = time.Hour
	defaultCallTimeout   = 5 * time.Second

	// stopAttempts is how many compare-and-set losses a stop absorbs before giving up.
	stopAttempts = 2
)

// ScheduleSource lists the scheduled sessions of a course.
type ScheduleSource interface {
	ListSchedules(ctx context.Context, courseID uuid.UUID, from, to time.Time) ([]models.ScheduledSession, error)
}

// Seats books and counts participant seats.
type Seats interface {
	BookSeat(ctx context.Context, courseID, userID uuid.UUID) error
	CountSeated(ctx context.Context, courseID uuid.UUID) (int, error)
}

// Recorder commits the recording of a stopped session.
type Recorder interface {
	Commit(ctx context.Context, req recordings.CommitRequest) (*models.RecordingReference, error)
}

// Notifier publishes status changes to push subscribers.
type Notifier interface {
	PublishStatus(ctx context.Context, courseID uuid.UUID, status models.LiveStatus) error
}

// Observer receives operation metrics.
type Observer interface {
	ObserveOperation(operation, outcome string)
	IncConflicts()
	IncCredentialFailures()
	IncRecordingFailures()
}

// Deps are the collaborators of the orchestrator. Notifier, Observer, Logger and Now are optional.
type Deps struct {
	Store     livestate.Store
	Guard     *access.Guard
	Schedules ScheduleSource
	Seats     Seats
	Issuer    rtc.Issuer
	Recorder  Recorder
	Notifier  Notifier
	Observer  Observer
	Logger    *zap.Logger
	Now       func() time.Time
}

// Config tunes timing.
type Config struct {
	Window        schedule.Window
	CredentialTTL time.Duration
	CallTimeout   time.Duration
}

// StartOptions are the optional fields of a start request. Nil fields leave the profile untouched.
// A MaxParticipants of 0 removes the participant limit.
type StartOptions struct {
	MaxParticipants *int       `json:"maxParticipants"`
	NextLiveDate    *time.Time `json:"nextLiveDate"`
}

func (opts StartOptions) validate() error {
	if opts.MaxParticipants != nil && *opts.MaxParticipants < 0 {
		return ErrInvalidCapacity
	}
	return nil
}

// StopOptions describe the recording of the session being stopped.
type StopOptions struct {
	RecordingURL string `json:"recordingUrl"`
	Title        string `json:"title"`
}

// Session is the result of a successful start or join.
type Session struct {
	CourseID   uuid.UUID
	ChannelID  string
	AppID      string
	Credential models.Credential
}

// StopResult reports what a stop did. RecordingErr is a warning: the session is stopped regardless.
type StopResult struct {
	NoOp         bool
	Recording    *models.RecordingReference
	RecordingErr error
}

// Orchestrator owns the IDLE/ACTIVE transitions of course live profiles.
type Orchestrator struct {
	store     livestate.Store
	guard     *access.Guard
	schedules ScheduleSource
	seats     Seats
	issuer    rtc.Issuer
	recorder  Recorder
	notifier  Notifier
	observer  Observer
	logger    *zap.Logger
	now       func() time.Time

	window      schedule.Window
	ttl         time.Duration
	callTimeout time.Duration
}

// New creates an orchestrator.
func New(d Deps, cfg Config) *Orchestrator {
	o := &Orchestrator{
		store:       d.Store,
		guard:       d.Guard,
		schedules:   d.Schedules,
		seats:       d.Seats,
		issuer:      d.Issuer,
		recorder:    d.Recorder,
		notifier:    d.Notifier,
		observer:    d.Observer,
		logger:      d.Logger,
		now:         d.Now,
		window:      cfg.Window,
		ttl:         cfg.CredentialTTL,
		callTimeout: cfg.CallTimeout,
	}
	if o.observer == nil {
		o.observer = nopObserver{}
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.ttl <= 0 {
		o.ttl = defaultCredentialTTL
	}
	if o.callTimeout <= 0 {
		o.callTimeout = defaultCallTimeout
	}
	return o
}

// Start moves an IDLE course to ACTIVE and returns the owner's publisher credential.
// A lost compare-and-set is re-evaluated once; a second loss is reported as ErrAlreadyActive.
func (o *Orchestrator) Start(ctx context.Context, courseID, principal uuid.UUID, opts StartOptions) (*Session, error) {
	if err := opts.validate(); err != nil {
		o.observe("start", err)
		return nil, err
	}
	return o.start(ctx, courseID, principal, opts, nil)
}

// StartOrJoin starts the session when principal owns the course and joins it otherwise.
// The decision and the first attempt share one profile read.
func (o *Orchestrator) StartOrJoin(ctx context.Context, courseID, principal uuid.UUID, opts StartOptions) (*Session, error) {
	if err := opts.validate(); err != nil {
		o.observe("start", err)
		return nil, err
	}
	profile, err := o.load(ctx, courseID)
	if err != nil {
		o.observe("start", err)
		return nil, err
	}
	if profile.OwnerID == principal {
		return o.start(ctx, courseID, principal, opts, profile)
	}
	s, err := o.join(ctx, profile, principal)
	o.observe("join", err)
	return s, err
}

// start runs the start attempts. profile, when non-nil, is used for the first attempt.
func (o *Orchestrator) start(ctx context.Context, courseID, principal uuid.UUID, opts StartOptions, profile *models.CourseLiveProfile) (*Session, error) {
	for attempt := 0; ; attempt++ {
		s, err := o.tryStart(ctx, courseID, principal, opts, profile)
		if errors.Is(err, livestate.ErrConflict) {
			o.observer.IncConflicts()
			o.logger.Debug("start lost compare-and-set", zap.String("course_id", courseID.String()), zap.Int("attempt", attempt))
			if attempt == 0 {
				profile = nil
				continue
			}
			err = ErrAlreadyActive
		}
		o.observe("start", err)
		if err != nil {
			return nil, err
		}
		o.logger.Info("live session started",
			zap.String("course_id", courseID.String()),
			zap.String("channel_id", s.ChannelID),
		)
		o.notify(ctx, courseID, models.LiveStatusActive)
		return s, nil
	}
}

func (o *Orchestrator) tryStart(ctx context.Context, courseID, principal uuid.UUID, opts StartOptions, profile *models.CourseLiveProfile) (*Session, error) {
	if profile == nil {
		var err error
		if profile, err = o.load(ctx, courseID); err != nil {
			return nil, err
		}
	}
	if _, err := o.authorize(ctx, principal, profile, access.IntentStart); err != nil {
		return nil, err
	}

	now := o.now()
	if err := o.checkWindow(ctx, courseID, now); err != nil {
		return nil, err
	}

	channelID := profile.ChannelID
	if channelID == "" {
		channelID = newChannelID(courseID, now)
	}
	cred, err := o.issue(ctx, channelID, principal, models.RolePublisher, now)
	if err != nil {
		return nil, err
	}

	sessionID := uuid.New()
	tctx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()
	updated, err := o.store.Transition(tctx, courseID, models.LiveStatusIdle, func(p *models.CourseLiveProfile) error {
		switch {
		case p.ChannelID == "":
			p.ChannelID = channelID
		case p.ChannelID != channelID:
			return livestate.ErrConflict
		}
		p.Status = models.LiveStatusActive
		p.Credential = &cred
		p.SessionID = &sessionID
		p.StartedAt = &now
		if opts.MaxParticipants != nil {
			if n := *opts.MaxParticipants; n > 0 {
				p.Capacity = &n
			} else {
				p.Capacity = nil
			}
		}
		if opts.NextLiveDate != nil {
			t := *opts.NextLiveDate
			p.NextLiveDate = &t
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, livestate.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("start transition: %w", err)
	}
	return &Session{CourseID: courseID, ChannelID: updated.ChannelID, AppID: o.issuer.AppID(), Credential: cred}, nil
}

// Join admits principal to the ACTIVE session of a course. The owner gets a publisher
// credential for reconnecting; everyone else subscribes.
func (o *Orchestrator) Join(ctx context.Context, courseID, principal uuid.UUID) (*Session, error) {
	profile, err := o.load(ctx, courseID)
	if err != nil {
		o.observe("join", err)
		return nil, err
	}
	s, err := o.join(ctx, profile, principal)
	o.observe("join", err)
	return s, err
}

func (o *Orchestrator) join(ctx context.Context, profile *models.CourseLiveProfile, principal uuid.UUID) (*Session, error) {
	courseID := profile.CourseID
	decision, err := o.authorize(ctx, principal, profile, access.IntentJoin)
	if err != nil {
		return nil, err
	}

	role := models.RoleSubscriber
	if decision.IsOwner {
		role = models.RolePublisher
	}
	cred, err := o.issue(ctx, profile.ChannelID, principal, role, o.now())
	if err != nil {
		return nil, err
	}

	if needsSeat(decision) {
		sctx, cancel := context.WithTimeout(ctx, o.callTimeout)
		defer cancel()
		if err := o.seats.BookSeat(sctx, courseID, principal); err != nil {
			o.logger.Warn("book seat failed", zap.Error(err),
				zap.String("course_id", courseID.String()),
				zap.String("user_id", principal.String()),
			)
		}
	}

	o.logger.Info("joined live session",
		zap.String("course_id", courseID.String()),
		zap.String("user_id", principal.String()),
		zap.String("role", string(role)),
		zap.Bool("reconnect", decision.Reconnect),
	)
	return &Session{CourseID: courseID, ChannelID: profile.ChannelID, AppID: o.issuer.AppID(), Credential: cred}, nil
}

func needsSeat(d access.Decision) bool {
	return !d.IsOwner && !d.Reconnect && d.Admission != nil && d.Admission.Role == models.AdmissionParticipant
}

// Stop moves an ACTIVE course to IDLE and commits the session recording. Stopping an IDLE
// course succeeds without side effects; only the caller that wins the transition records.
func (o *Orchestrator) Stop(ctx context.Context, courseID, principal uuid.UUID, opts StopOptions) (StopResult, error) {
	res, err := o.stop(ctx, courseID, principal, opts)
	switch {
	case err != nil:
		o.observe("stop", err)
	case res.NoOp:
		o.observer.ObserveOperation("stop", "noop")
	default:
		o.observe("stop", nil)
	}
	return res, err
}

func (o *Orchestrator) stop(ctx context.Context, courseID, principal uuid.UUID, opts StopOptions) (StopResult, error) {
	var sessionID uuid.UUID
	for attempt := 0; ; attempt++ {
		profile, err := o.load(ctx, courseID)
		if err != nil {
			return StopResult{}, err
		}
		if _, err := o.authorize(ctx, principal, profile, access.IntentStop); err != nil {
			return StopResult{}, err
		}
		if profile.Status == models.LiveStatusIdle {
			o.logger.Info("stop on idle course", zap.String("course_id", courseID.String()))
			return StopResult{NoOp: true}, nil
		}
		if attempt >= stopAttempts {
			o.logger.Warn("stop gave up after repeated conflicts", zap.String("course_id", courseID.String()))
			return StopResult{}, ErrStopContended
		}

		tctx, cancel := context.WithTimeout(ctx, o.callTimeout)
		_, err = o.store.Transition(tctx, courseID, models.LiveStatusActive, func(p *models.CourseLiveProfile) error {
			if p.SessionID != nil {
				sessionID = *p.SessionID
			} else {
				sessionID = uuid.New()
			}
			p.Status = models.LiveStatusIdle
			p.Credential = nil
			return nil
		})
		cancel()
		if err == nil {
			break
		}
		if !errors.Is(err, livestate.ErrConflict) {
			return StopResult{}, fmt.Errorf("stop transition: %w", err)
		}
		o.observer.IncConflicts()
		o.logger.Debug("stop lost compare-and-set", zap.String("course_id", courseID.String()), zap.Int("attempt", attempt))
	}

	o.logger.Info("live session stopped",
		zap.String("course_id", courseID.String()),
		zap.String("session_id", sessionID.String()),
	)
	o.notify(ctx, courseID, models.LiveStatusIdle)

	res := StopResult{}
	if o.recorder == nil {
		return res, nil
	}
	ref, err := o.recorder.Commit(context.WithoutCancel(ctx), recordings.CommitRequest{
		CourseID:  courseID,
		SessionID: sessionID,
		SourceURL: opts.RecordingURL,
		Title:     opts.Title,
		EndedAt:   o.now(),
	})
	if err != nil {
		o.observer.IncRecordingFailures()
		o.logger.Warn("session stopped but recording was not saved", zap.Error(err),
			zap.String("course_id", courseID.String()),
			zap.String("session_id", sessionID.String()),
		)
		res.RecordingErr = err
		return res, nil
	}
	res.Recording = ref
	return res, nil
}

// Status returns the poll view of a course. It never mutates state.
func (o *Orchestrator) Status(ctx context.Context, courseID uuid.UUID) (models.LiveStatusView, error) {
	profile, err := o.load(ctx, courseID)
	if err != nil {
		return models.LiveStatusView{}, err
	}
	view := models.LiveStatusView{
		CourseID:     courseID,
		Status:       profile.Status,
		ChannelID:    profile.ChannelID,
		IsLive:       profile.Status == models.LiveStatusActive,
		NextLiveDate: profile.NextLiveDate,
		Capacity:     profile.Capacity,
	}
	if o.seats != nil {
		cctx, cancel := context.WithTimeout(ctx, o.callTimeout)
		defer cancel()
		n, err := o.seats.CountSeated(cctx, courseID)
		if err != nil {
			return models.LiveStatusView{}, fmt.Errorf("count seated: %w", err)
		}
		view.ParticipantCount = n
	}
	return view, nil
}

// CanView returns nil when principal owns or is admitted to the course.
func (o *Orchestrator) CanView(ctx context.Context, courseID, principal uuid.UUID) error {
	profile, err := o.load(ctx, courseID)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()
	return o.guard.CanView(ctx, principal, profile)
}

// authorize bounds the guard's admission reads like every other store call.
func (o *Orchestrator) authorize(ctx context.Context, principal uuid.UUID, profile *models.CourseLiveProfile, intent access.Intent) (access.Decision, error) {
	ctx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()
	return o.guard.Authorize(ctx, principal, profile, intent)
}

func (o *Orchestrator) load(ctx context.Context, courseID uuid.UUID) (*models.CourseLiveProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()
	p, err := o.store.Get(ctx, courseID)
	if errors.Is(err, livestate.ErrNotFound) {
		return nil, ErrCourseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return p, nil
}

func (o *Orchestrator) checkWindow(ctx context.Context, courseID uuid.UUID, now time.Time) error {
	from, to := o.window.SearchRange(now)
	ctx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()
	sessions, err := o.schedules.ListSchedules(ctx, courseID, from, to)
	if err != nil {
		return fmt.Errorf("list schedules: %w", err)
	}
	if _, ok := o.window.Eligible(now, sessions); !ok {
		return ErrNoEligibleSchedule
	}
	return nil
}

func (o *Orchestrator) issue(ctx context.Context, channelID string, principal uuid.UUID, role models.CredentialRole, now time.Time) (models.Credential, error) {
	ctx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()
	cred, err := o.issuer.Issue(ctx, rtc.Request{
		ChannelID: channelID,
		UserID:    principal.String(),
		Role:      role,
		ExpiresAt: now.Add(o.ttl),
	})
	if err != nil {
		o.observer.IncCredentialFailures()
		o.logger.Error("issue credential failed", zap.Error(err), zap.String("channel_id", channelID))
		return models.Credential{}, fmt.Errorf("%w: %v", ErrCredentialIssuance, err)
	}
	return cred, nil
}

func (o *Orchestrator) notify(ctx context.Context, courseID uuid.UUID, status models.LiveStatus) {
	if o.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.callTimeout)
	defer cancel()
	if err := o.notifier.PublishStatus(ctx, courseID, status); err != nil {
		o.logger.Warn("publish status failed", zap.Error(err), zap.String("course_id", courseID.String()))
	}
}

func (o *Orchestrator) observe(operation string, err error) {
	o.observer.ObserveOperation(operation, outcome(err))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrAlreadyActive):
		return "already_active"
	case errors.Is(err, ErrNoActiveSession):
		return "no_active_session"
	case errors.Is(err, ErrNoEligibleSchedule):
		return "no_eligible_schedule"
	case errors.Is(err, ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(err, ErrCourseNotFound):
		return "not_found"
	case errors.Is(err, ErrCredentialIssuance):
		return "credential_failure"
	case errors.Is(err, ErrInvalidCapacity):
		return "invalid_request"
	case errors.Is(err, ErrStopContended):
		return "conflict"
	}
	return "error"
}

func newChannelID(courseID uuid.UUID, now time.Time) string {
	return fmt.Sprintf("course_%s_%d", courseID, now.UnixMilli())
}

type nopObserver struct{}

func (nopObserver) ObserveOperation(string, string) {}
func (nopObserver) IncConflicts()                   {}
func (nopObserver) IncCredentialFailures()          {}
func (nopObserver) IncRecordingFailures()           {}
