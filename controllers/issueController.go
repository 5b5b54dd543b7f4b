package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"civicreport-be/middlewares"
	"civicreport-be/models"
	"civicreport-be/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type IssueController struct {
	issues  *services.IssueService
	log     *zap.SugaredLogger
	timeout time.Duration
}

func NewIssueController(issues *services.IssueService, log *zap.SugaredLogger, timeout time.Duration) *IssueController {
	return &IssueController{issues: issues, log: log, timeout: timeout}
}

// issueRequest is the body of create and edit. Pointers record which fields
// the client actually sent.
type issueRequest struct {
	IssueTitle    *string         `json:"issueTitle"`
	IssueType     *string         `json:"issueType"`
	PriorityLevel *string         `json:"priorityLevel"`
	Address       *string         `json:"address"`
	Landmark      *string         `json:"landmark"`
	Description   *string         `json:"description"`
	Location      json.RawMessage `json:"location"`
	Images        *[]string       `json:"images"`
}

type statusRequest struct {
	Status     *string `json:"status"`
	AssignedTo *string `json:"assignedTo"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (r *issueRequest) input() (models.IssueInput, error) {
	loc, err := models.ParseLocation(r.Location)
	if err != nil {
		return models.IssueInput{}, err
	}
	in := models.IssueInput{
		IssueTitle:    deref(r.IssueTitle),
		IssueType:     models.IssueType(deref(r.IssueType)),
		PriorityLevel: models.PriorityLevel(deref(r.PriorityLevel)),
		Address:       deref(r.Address),
		Landmark:      deref(r.Landmark),
		Description:   deref(r.Description),
		Location:      loc,
	}
	if r.Images != nil {
		in.Images = *r.Images
	}
	return in, nil
}

func (r *issueRequest) patch() (models.IssuePatch, error) {
	loc, err := models.ParseLocation(r.Location)
	if err != nil {
		return models.IssuePatch{}, err
	}
	p := models.IssuePatch{
		IssueTitle:  r.IssueTitle,
		Address:     r.Address,
		Landmark:    r.Landmark,
		Description: r.Description,
		Location:    loc,
		Images:      r.Images,
	}
	if r.IssueType != nil {
		t := models.IssueType(*r.IssueType)
		p.IssueType = &t
	}
	if r.PriorityLevel != nil {
		pl := models.PriorityLevel(*r.PriorityLevel)
		p.PriorityLevel = &pl
	}
	return p, nil
}

// CreateIssue reports a new issue on behalf of the authenticated user
func (ic *IssueController) CreateIssue(c *gin.Context) {
	var req issueRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, ic.log, err)
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(c, ic.log, err)
		return
	}

	ctx, cancel := withTimeout(c, ic.timeout)
	defer cancel()

	issue, err := ic.issues.Create(ctx, middlewares.CallerFrom(c), in)
	if err != nil {
		writeError(c, ic.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Issue reported successfully",
		"issue":   issue,
	})
}

func queryInt(c *gin.Context, key string, def int64) (int64, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a positive integer", models.ErrValidation, key)
	}
	return n, nil
}

// GetAllIssues lists issues with optional status, issueType and priorityLevel filters
func (ic *IssueController) GetAllIssues(c *gin.Context) {
	page, err := queryInt(c, "page", services.DefaultPage)
	if err != nil {
		writeError(c, ic.log, err)
		return
	}
	limit, err := queryInt(c, "limit", services.DefaultPageSize)
	if err != nil {
		writeError(c, ic.log, err)
		return
	}

	filter := models.IssueFilter{
		Status:        models.IssueStatus(c.Query("status")),
		IssueType:     models.IssueType(c.Query("issueType")),
		PriorityLevel: models.PriorityLevel(c.Query("priorityLevel")),
	}

	ctx, cancel := withTimeout(c, ic.timeout)
	defer cancel()

	result, err := ic.issues.List(ctx, filter, page, limit)
	if err != nil {
		writeError(c, ic.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (ic *IssueController) GetIssue(c *gin.Context) {
	ctx, cancel := withTimeout(c, ic.timeout)
	defer cancel()

	issue, err := ic.issues.Get(ctx, c.Param("id"))
	if err != nil {
		writeError(c, ic.log, err)
		return
	}
	c.JSON(http.StatusOK, issue)
}

// GetMyIssues lists every issue the authenticated user reported
func (ic *IssueController) GetMyIssues(c *gin.Context) {
	ctx, cancel := withTimeout(c, ic.timeout)
	defer cancel()

	issues, err := ic.issues.ListByReporter(ctx, middlewares.CallerFrom(c))
	if err != nil {
		writeError(c, ic.log, err)
		return
	}
	c.JSON(http.StatusOK, issues)
}

// UpdateIssue lets the reporter edit an issue that is still Pending
func (ic *IssueController) UpdateIssue(c *gin.Context) {
	var req issueRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, ic.log, err)
		return
	}
	patch, err := req.patch()
	if err != nil {
		writeError(c, ic.log, err)
		return
	}

	ctx, cancel := withTimeout(c, ic.timeout)
	defer cancel()

	issue, err := ic.issues.Update(ctx, middlewares.CallerFrom(c), c.Param("id"), patch)
	if err != nil {
		writeError(c, ic.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Issue updated successfully",
		"issue":   issue,
	})
}

// UpdateIssueStatus changes status and/or assignee
func (ic *IssueController) UpdateIssueStatus(c *gin.Context) {
	var req statusRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, ic.log, err)
		return
	}
	upd := models.StatusUpdate{AssignedTo: req.AssignedTo}
	if req.Status != nil && *req.Status != "" {
		st := models.IssueStatus(*req.Status)
		upd.Status = &st
	}

	ctx, cancel := withTimeout(c, ic.timeout)
	defer cancel()

	issue, err := ic.issues.UpdateStatus(ctx, middlewares.CallerFrom(c), c.Param("id"), upd)
	if err != nil {
		writeError(c, ic.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Issue status updated",
		"issue":   issue,
	})
}

func (ic *IssueController) DeleteIssue(c *gin.Context) {
	ctx, cancel := withTimeout(c, ic.timeout)
	defer cancel()

	if err := ic.issues.Delete(ctx, middlewares.CallerFrom(c), c.Param("id")); err != nil {
		writeError(c, ic.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Issue deleted successfully"})
}

// GetIssueStats returns dashboard counts over all issues
func (ic *IssueController) GetIssueStats(c *gin.Context) {
	ctx, cancel := withTimeout(c, ic.timeout)
	defer cancel()

	stats, err := ic.issues.Stats(ctx)
	if err != nil {
		writeError(c, ic.log, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
