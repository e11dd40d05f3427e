// internal/app/features/church/handler.go
package church

import (
	"time"

	uierrors "github.com/dalemusser/studyhub/internal/app/features/errors"
	accessrequeststore "github.com/dalemusser/studyhub/internal/app/store/accessrequests"
	coursestore "github.com/dalemusser/studyhub/internal/app/store/courses"
	coursesessionstore "github.com/dalemusser/studyhub/internal/app/store/coursesessions"
	enrollmentstore "github.com/dalemusser/studyhub/internal/app/store/enrollments"
	progressstore "github.com/dalemusser/studyhub/internal/app/store/progress"
	"github.com/dalemusser/studyhub/internal/app/system/authz"
	"github.com/dalemusser/studyhub/internal/app/system/metrics"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the public side of a church: the course catalog, course
// pages and session pages. Published content is readable by anyone;
// enrollment and progress need a signed-in caller.
type Handler struct {
	DB          *mongo.Database
	Log         *zap.Logger
	ErrLog      *uierrors.ErrorLogger
	Authz       *authz.Authorizer
	Courses     *coursestore.Store
	Sessions    *coursesessionstore.Store
	Enrollments *enrollmentstore.Store
	Progress    *progressstore.Store
	Requests    *accessrequeststore.Store
	Metrics     *metrics.Metrics

	now func() time.Time
}

func NewHandler(client *mongo.Client, db *mongo.Database, az *authz.Authorizer, errLog *uierrors.ErrorLogger, m *metrics.Metrics, logger *zap.Logger) *Handler {
	return &Handler{
		DB:          db,
		Log:         logger,
		ErrLog:      errLog,
		Authz:       az,
		Courses:     coursestore.New(db),
		Sessions:    coursesessionstore.New(db),
		Enrollments: enrollmentstore.New(db),
		Progress:    progressstore.New(db),
		Requests:    accessrequeststore.New(client, db),
		Metrics:     m,
		now:         func() time.Time { return time.Now().UTC() },
	}
}
