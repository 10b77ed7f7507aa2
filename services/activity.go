package services

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/teyvattales/models"
	"github.com/cppla/teyvattales/utils"
)

// RecentActivityLimit caps how many events the account page shows.
const RecentActivityLimit = 10

// activityAppendFailures counts activity events lost to failed inserts.
var activityAppendFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "teyvat_activity_append_failures_total",
	Help: "Activity log appends that failed and were dropped",
}, []string{"kind"})

// titleResolver maps reference ids of one action kind to display titles.
type titleResolver func(ctx context.Context, db *gorm.DB, refIDs []uint) (map[uint]string, error)

// titleResolvers dispatches title lookup by kind. Lookups ignore soft-delete so
// events about deleted posts keep their title.
var titleResolvers = map[models.ActionKind]titleResolver{
	models.ActionCreatePost: postTitles,
	models.ActionUpdatePost: postTitles,
	models.ActionDeletePost: postTitles,
	models.ActionComment:    commentPostTitles,
}

type idTitle struct {
	ID    uint
	Title string
}

func postTitles(ctx context.Context, db *gorm.DB, refIDs []uint) (map[uint]string, error) {
	var rows []idTitle
	err := db.WithContext(ctx).Table("posts").
		Select("id, title").
		Where("id IN ?", refIDs).
		Scan(&rows).Error
	return toTitleMap(rows), err
}

func commentPostTitles(ctx context.Context, db *gorm.DB, refIDs []uint) (map[uint]string, error) {
	var rows []idTitle
	err := db.WithContext(ctx).Table("user_comments").
		Select("user_comments.id AS id, posts.title AS title").
		Joins("JOIN posts ON posts.id = user_comments.post_id").
		Where("user_comments.id IN ?", refIDs).
		Scan(&rows).Error
	return toTitleMap(rows), err
}

func toTitleMap(rows []idTitle) map[uint]string {
	m := make(map[uint]string, len(rows))
	for _, r := range rows {
		m[r.ID] = r.Title
	}
	return m
}

// ActivityService is the append-only activity log.
type ActivityService struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewActivityService(db *gorm.DB, log *zap.Logger) *ActivityService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ActivityService{db: db, log: log}
}

// Append inserts one event stamped with the current time.
func (s *ActivityService) Append(ctx context.Context, userID uint, kind models.ActionKind, referenceID uint, public bool) error {
	ev := models.ActivityEvent{
		UserID:      userID,
		ActionType:  kind,
		ReferenceID: referenceID,
		IsPublic:    public,
		Timestamp:   time.Now(),
	}
	return s.db.WithContext(ctx).Create(&ev).Error
}

// Record appends an event after its primary write has committed. A failure is
// logged and never reported to the caller.
func (s *ActivityService) Record(ctx context.Context, userID uint, kind models.ActionKind, referenceID uint, public bool) {
	if err := s.Append(ctx, userID, kind, referenceID, public); err != nil {
		activityAppendFailures.WithLabelValues(string(kind)).Inc()
		s.log.Warn("activity log append failed",
			zap.Uint("user_id", userID),
			zap.String("kind", string(kind)),
			zap.Uint("reference_id", referenceID),
			zap.Error(err),
		)
	}
}

// Recent returns the user's newest events, newest first, with titles resolved.
func (s *ActivityService) Recent(ctx context.Context, userID uint, limit int) ([]models.ActivityView, error) {
	if limit <= 0 || limit > RecentActivityLimit {
		limit = RecentActivityLimit
	}

	var events []models.ActivityEvent
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}, Desc: true}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: true}).
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, NewDatabaseError(err)
	}

	// One lookup per kind rather than one per event
	refsByKind := map[models.ActionKind][]uint{}
	for _, ev := range events {
		if _, ok := titleResolvers[ev.ActionType]; ok {
			refsByKind[ev.ActionType] = append(refsByKind[ev.ActionType], ev.ReferenceID)
		}
	}
	titles := map[models.ActionKind]map[uint]string{}
	for kind, refs := range refsByKind {
		m, err := titleResolvers[kind](ctx, s.db, utils.UniqueUint(refs))
		if err != nil {
			return nil, NewDatabaseError(err)
		}
		titles[kind] = m
	}

	views := make([]models.ActivityView, 0, len(events))
	for _, ev := range events {
		title := models.UnknownTitle
		if m, ok := titles[ev.ActionType]; ok {
			title = m[ev.ReferenceID]
		}
		views = append(views, models.ActivityView{
			Kind:        ev.ActionType,
			ReferenceID: ev.ReferenceID,
			IsPublic:    ev.IsPublic,
			Timestamp:   ev.Timestamp,
			PostTitle:   title,
		})
	}
	return views, nil
}
