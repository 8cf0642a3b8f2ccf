package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"blood-bank/config"
	"blood-bank/models"
	"blood-bank/services"
)

func setupExportRoutes(router *gin.Engine, cfg *config.Config, exports *services.ExportService, log *zap.Logger) {
	rg := router.Group("/exports")

	rg.GET("/options", func(c *gin.Context) {
		opts, err := exports.Options(c.Request.Context())
		if err != nil {
			if services.IsUnavailable(err) {
				c.JSON(http.StatusOK, gin.H{"options": opts, "warning": err.Error()})
				return
			}
			respondError(c, log, err, nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"options": opts})
	})

	rg.POST("", apiKeyAuthMiddleware(cfg), func(c *gin.Context) {
		var req services.ExportRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		res, err := exports.Send(c.Request.Context(), req)
		if err != nil {
			var extra gin.H
			// Bei Transportfehlern wurde die Anfrage bereits protokolliert.
			if res.Logged || res.LogError != "" {
				exportsTotal.WithLabelValues("failed").Inc()
				extra = gin.H{"result": res}
			}
			respondError(c, log, err, extra)
			return
		}
		exportsTotal.WithLabelValues("sent").Inc()
		c.JSON(http.StatusOK, gin.H{"result": res, "message": "Email sent successfully!"})
	})
}

func setupInfoRoutes(router *gin.Engine, donors *services.DonorService, log *zap.Logger) {
	router.GET("/charts", func(c *gin.Context) {
		list, err := donors.List(c.Request.Context())
		if err != nil {
			if services.IsUnavailable(err) {
				c.JSON(http.StatusOK, gin.H{"summary": services.Summarize(nil), "warning": err.Error()})
				return
			}
			respondError(c, log, err, nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"summary": services.Summarize(list)})
	})

	router.GET("/about", func(c *gin.Context) {
		c.JSON(http.StatusOK, models.DefaultProfile)
	})
}
