package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vkrlab/briefbot/internal/bot"
	"github.com/vkrlab/briefbot/internal/pkg/logger"
	"github.com/vkrlab/briefbot/internal/services"
)

// AdminHandler exposes the curator API: request triage, progress summaries
// and student resets.
type AdminHandler struct {
	log      *logger.Logger
	intake   services.IntakeService
	progress services.ProgressService
	sessions *bot.SessionStore
}

func NewAdminHandler(log *logger.Logger, intake services.IntakeService, progress services.ProgressService, sessions *bot.SessionStore) *AdminHandler {
	return &AdminHandler{
		log:      log.With("handler", "AdminHandler"),
		intake:   intake,
		progress: progress,
		sessions: sessions,
	}
}

// ListRequests returns help/meeting requests. ?resolved=true switches to the
// resolved ones; the default is the open queue.
func (h *AdminHandler) ListRequests(c *gin.Context) {
	resolved := false
	if raw := c.Query("resolved"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "resolved must be a boolean"})
			return
		}
		resolved = v
	}

	var requests any
	var err error
	if resolved {
		requests, err = h.intake.ListResolved(c.Request.Context())
	} else {
		requests, err = h.intake.ListUnresolved(c.Request.Context())
	}
	if err != nil {
		h.log.Error("List requests failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

func (h *AdminHandler) ResolveRequest(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}
	if err := h.intake.Resolve(c.Request.Context(), id); err != nil {
		h.log.Error("Resolve failed", "request_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"resolved": id})
}

func (h *AdminHandler) Progress(c *gin.Context) {
	rows, err := h.progress.Summary(c.Request.Context())
	if err != nil {
		h.log.Error("Progress summary failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"progress": rows})
}

// ListStudents returns every registered student, selected or not.
func (h *AdminHandler) ListStudents(c *gin.Context) {
	students, err := h.progress.ListStudents(c.Request.Context())
	if err != nil {
		h.log.Error("List students failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

// ResetStudent clears the student's selection and checklist marks and drops
// their navigation session.
func (h *AdminHandler) ResetStudent(c *gin.Context) {
	studentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid student id"})
		return
	}
	if err := h.progress.ResetStudent(c.Request.Context(), studentID); err != nil {
		h.log.Error("Reset failed", "student_id", studentID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.sessions.Reset(studentID)
	c.JSON(http.StatusOK, gin.H{"reset": studentID})
}
