package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"blood-bank/config"
	"blood-bank/models"
	"blood-bank/services"
)

// donorRequest ist der Body für Anlegen und Ändern. Age darf als Zahl oder Text kommen,
// damit falsche Werte als Feldfehler statt als kaputter Body gemeldet werden.
type donorRequest struct {
	ID         string `json:"id"`
	Version    *int   `json:"version"`
	Name       string `json:"name"`
	Age        any    `json:"age"`
	BloodGroup string `json:"blood_group"`
	Contact    string `json:"contact"`
	Location   string `json:"location"`
}

func (r donorRequest) input() services.DonorInput {
	var age string
	switch v := r.Age.(type) {
	case nil:
	case string:
		age = v
	case float64:
		age = strconv.FormatFloat(v, 'f', -1, 64)
	default:
		age = fmt.Sprint(v)
	}
	return services.DonorInput{
		Name:       r.Name,
		Age:        age,
		BloodGroup: r.BloodGroup,
		Contact:    r.Contact,
		Location:   r.Location,
	}
}

func statusFor(err error) int {
	switch services.CodeOf(err) {
	case services.CodeValidation:
		return http.StatusUnprocessableEntity
	case services.CodeDuplicate, services.CodeVersionConflict:
		return http.StatusConflict
	case services.CodeNotFound:
		return http.StatusNotFound
	case services.CodeUnavailable, services.CodeNotConfigured:
		return http.StatusServiceUnavailable
	case services.CodeInvalidRecipient, services.CodeConfirmationRequired:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError schreibt den Fehler mit Code, Meldung und ggf. Feldfehlern. extra wird übernommen.
func respondError(c *gin.Context, log *zap.Logger, err error, extra gin.H) {
	body := gin.H{}
	for k, v := range extra {
		body[k] = v
	}

	var e *services.Error
	if errors.As(err, &e) {
		body["error"] = e.Message
		body["code"] = e.Code
		if len(e.Fields) > 0 {
			body["fields"] = e.Fields
		}
	} else {
		log.Error("Unhandled error", zap.String("path", c.FullPath()), zap.Error(err))
		body["error"] = "internal error"
	}
	c.JSON(statusFor(err), body)
}

func rowRef(c *gin.Context) (services.DonorRef, bool) {
	row, err := strconv.Atoi(c.Param("row"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid donor index selected."})
		return services.DonorRef{}, false
	}
	return services.DonorRef{Row: row, ID: c.Query("id")}, true
}

func masked(donors []models.Donor) []models.Donor {
	out := make([]models.Donor, len(donors))
	for i, d := range donors {
		d.Contact = d.MaskedContact()
		out[i] = d
	}
	return out
}

func setupDonorRoutes(router *gin.Engine, cfg *config.Config, donors *services.DonorService, log *zap.Logger) {
	rg := router.Group("/donors")
	auth := apiKeyAuthMiddleware(cfg)

	rg.GET("", func(c *gin.Context) {
		unmasked := c.Query("unmasked") == "true"
		if unmasked && !authorized(c, cfg) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}

		list, err := donors.List(c.Request.Context())
		if err != nil {
			if services.IsUnavailable(err) {
				c.JSON(http.StatusOK, gin.H{"donors": []models.Donor{}, "count": 0, "warning": err.Error()})
				return
			}
			respondError(c, log, err, nil)
			return
		}
		if !unmasked {
			list = masked(list)
		}
		c.JSON(http.StatusOK, gin.H{"donors": list, "count": len(list)})
	})

	rg.POST("", auth, func(c *gin.Context) {
		var req donorRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		d, err := donors.Add(c.Request.Context(), req.input())
		if err != nil {
			if services.HasCode(err, services.CodeDuplicate) {
				duplicatesRejected.Inc()
			}
			respondError(c, log, err, nil)
			return
		}
		donorOpsTotal.WithLabelValues("add").Inc()
		c.JSON(http.StatusCreated, gin.H{"donor": d, "message": "Donor added successfully!"})
	})

	rg.GET("/:row", auth, func(c *gin.Context) {
		ref, ok := rowRef(c)
		if !ok {
			return
		}
		d, err := donors.Get(c.Request.Context(), ref)
		if err != nil {
			respondError(c, log, err, nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"donor":  d,
			"manage": models.ManageState{Open: true, Action: models.ManageUpdate, Row: d.Row},
		})
	})

	rg.PUT("/:row", auth, func(c *gin.Context) {
		ref, ok := rowRef(c)
		if !ok {
			return
		}
		var req donorRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if req.ID != "" {
			ref.ID = req.ID
		}

		d, state, err := donors.Update(c.Request.Context(), services.UpdateRequest{
			Ref:             ref,
			Input:           req.input(),
			ExpectedVersion: req.Version,
		})
		if err != nil {
			if services.HasCode(err, services.CodeDuplicate) {
				duplicatesRejected.Inc()
			}
			respondError(c, log, err, gin.H{"manage": state})
			return
		}
		donorOpsTotal.WithLabelValues("update").Inc()
		c.JSON(http.StatusOK, gin.H{"donor": d, "manage": state, "message": "Donor updated successfully!"})
	})

	rg.GET("/:row/delete", auth, func(c *gin.Context) {
		ref, ok := rowRef(c)
		if !ok {
			return
		}
		prompt, err := donors.PrepareDelete(c.Request.Context(), ref)
		if err != nil {
			respondError(c, log, err, nil)
			return
		}
		c.JSON(http.StatusOK, prompt)
	})

	rg.DELETE("/:row", auth, func(c *gin.Context) {
		ref, ok := rowRef(c)
		if !ok {
			return
		}
		d, state, err := donors.ConfirmDelete(c.Request.Context(), ref, c.Query("token"))
		if err != nil {
			respondError(c, log, err, gin.H{"manage": state})
			return
		}
		donorOpsTotal.WithLabelValues("delete").Inc()
		c.JSON(http.StatusOK, gin.H{"donor": d, "manage": state, "message": "Donor deleted successfully!"})
	})

	rg.POST("/:row/delete/cancel", auth, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"manage": donors.CancelDelete(), "message": "Delete cancelled."})
	})
}
