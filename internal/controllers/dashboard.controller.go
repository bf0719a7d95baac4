package controllers

import (
	"net/http"

	"twinconsole/internal/apperr"
	"twinconsole/internal/models"

	"github.com/gin-gonic/gin"
)

// GetSnapshot returns every view model at once
func (h *Handlers) GetSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, h.Console.Snapshot())
}

// GetSensors returns every tracked channel series
func (h *Handlers) GetSensors(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"sensors": h.Console.Sensors(),
	})
}

// GetSensor returns one channel series
func (h *Handlers) GetSensor(c *gin.Context) {
	series, err := h.Console.Sensor(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, series)
}

// GetEvents returns the anomaly event log, newest first
// Query params: severity=low|medium|high (optional)
func (h *Handlers) GetEvents(c *gin.Context) {
	severity := models.Severity(c.Query("severity"))
	switch severity {
	case "", models.SeverityLow, models.SeverityMedium, models.SeverityHigh:
	default:
		respondError(c, apperr.Errorf(apperr.KindValidation, "invalid severity %q", severity))
		return
	}

	events := h.Console.Events(severity)
	c.JSON(http.StatusOK, gin.H{
		"count":  len(events),
		"events": events,
	})
}

// GetHeatmap returns the flat heatmap cell list
func (h *Handlers) GetHeatmap(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"cells": h.Console.Heatmap(),
	})
}

// GetHeatmapGrid returns the heatmap as a sensor x time matrix
func (h *Handlers) GetHeatmapGrid(c *gin.Context) {
	c.JSON(http.StatusOK, h.Console.HeatmapGrid())
}
