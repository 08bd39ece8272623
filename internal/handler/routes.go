package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/classnest/classnest-api/internal/middleware"
	"github.com/classnest/classnest-api/internal/models"
	"github.com/classnest/classnest-api/internal/service"
)

// Services bundles everything route registration needs.
type Services struct {
	Auth          *service.AuthService
	Classrooms    *service.ClassroomService
	Subjects      *service.SubjectService
	Notifications *service.NotificationService
	TestResults   *service.TestResultService
	Assets        *service.AssetService
}

// RegisterRoutes mounts the API under /api/v1.
func RegisterRoutes(r *gin.Engine, svcs Services) {
	authHandler := NewAuthHandler(svcs.Auth)
	classroomHandler := NewClassroomHandler(svcs.Classrooms)
	subjectHandler := NewSubjectHandler(svcs.Subjects)
	notificationHandler := NewNotificationHandler(svcs.Notifications)
	resultHandler := NewTestResultHandler(svcs.TestResults)
	noteHandler := NewAssetHandler(svcs.Assets, models.AssetNote)
	lectureHandler := NewAssetHandler(svcs.Assets, models.AssetVideoLecture)

	v1 := r.Group("/api/v1")

	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/verify", authHandler.Verify)
	auth.POST("/login", authHandler.Login)
	auth.GET("/me", middleware.JWT(svcs.Auth), authHandler.Me)

	secured := v1.Group("")
	secured.Use(middleware.JWT(svcs.Auth))

	teacherOnly := middleware.RBAC(models.RoleTeacher)
	studentOnly := middleware.RBAC(models.RoleStudent)

	classrooms := secured.Group("/classrooms")
	classrooms.POST("", teacherOnly, classroomHandler.Create)
	classrooms.GET("", classroomHandler.List)
	classrooms.POST("/join", studentOnly, classroomHandler.Join)
	classrooms.GET("/:id", classroomHandler.Get)
	classrooms.GET("/:id/members", classroomHandler.Members)
	classrooms.POST("/:id/invite", teacherOnly, classroomHandler.Invite)
	classrooms.POST("/:id/announcements", teacherOnly, classroomHandler.Announce)

	classrooms.POST("/:id/subject", teacherOnly, subjectHandler.Create)
	classrooms.POST("/:id/subject/ingest", teacherOnly, subjectHandler.Ingest)
	classrooms.GET("/:id/subject", subjectHandler.Get)

	classrooms.GET("/:id/results/export", teacherOnly, resultHandler.Export)

	classrooms.POST("/:id/notes", teacherOnly, noteHandler.Upload)
	classrooms.GET("/:id/notes", noteHandler.List)
	classrooms.DELETE("/:id/notes/:assetId", teacherOnly, noteHandler.Delete)
	classrooms.POST("/:id/lectures", teacherOnly, lectureHandler.Upload)
	classrooms.GET("/:id/lectures", lectureHandler.List)
	classrooms.DELETE("/:id/lectures/:assetId", teacherOnly, lectureHandler.Delete)

	secured.POST("/test-results", studentOnly, resultHandler.Save)
	secured.GET("/test-results", studentOnly, resultHandler.ListMine)

	notifications := secured.Group("/notifications")
	notifications.GET("", notificationHandler.List)
	notifications.POST("/:id/read", notificationHandler.MarkRead)
}
