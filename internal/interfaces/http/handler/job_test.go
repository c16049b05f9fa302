package handler_test

import (
	"net/http"
	"testing"

	appproduction "github.com/printshop/backend/internal/application/production"
	"github.com/printshop/backend/internal/domain/production"
	"github.com/printshop/backend/internal/domain/sales"
	"github.com/printshop/backend/internal/domain/shared"
	"github.com/printshop/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pressOperator = 21

// startProduction returns the single job of a paid business-card order
func (f *fixture) startProduction(t *testing.T) (orderID uint64, job appproduction.JobResponse) {
	t.Helper()
	order := f.createOrder(t, sales.PaymentTermsImmediate, nil, testutil.Line(f.cards.ID, 1))
	f.moveOrder(t, order.ID, sales.OrderStatusPendingPayment)
	f.pay(t, order.ID, "44")
	f.moveOrder(t, order.ID, sales.OrderStatusInProduction)

	w := f.api.AsClerk(t, http.MethodGet, url("/orders/%d/jobs", order.ID), nil)
	testutil.RequireStatus(t, w, http.StatusOK)
	jobs := testutil.DecodeData[[]appproduction.JobResponse](t, w)
	require.Len(t, jobs, 1)
	return order.ID, jobs[0]
}

func (f *fixture) moveJob(t *testing.T, jobID uint64, status production.JobStatus, reason string) appproduction.JobResponse {
	t.Helper()
	w := f.api.AsClerk(t, http.MethodPost, url("/jobs/%d/status", jobID),
		appproduction.UpdateJobStatusRequest{Status: status, Reason: reason})
	testutil.RequireStatus(t, w, http.StatusOK)
	return testutil.DecodeData[appproduction.JobResponse](t, w)
}

func TestJobHandler_Workflow(t *testing.T) {
	f := newFixture(t)
	orderID, job := f.startProduction(t)

	assert.Equal(t, production.JobStatusPending, job.Status)
	assert.Regexp(t, `^JOB-2025-\d{4}$`, job.JobNumber)

	job = f.moveJob(t, job.ID, production.JobStatusAccepted, "")
	assert.Equal(t, production.JobStatusAccepted, job.Status)

	w := f.api.AsClerk(t, http.MethodPost, url("/jobs/%d/assign", job.ID),
		appproduction.AssignJobRequest{AssigneeID: pressOperator})
	testutil.RequireStatus(t, w, http.StatusOK)
	job = testutil.DecodeData[appproduction.JobResponse](t, w)
	assert.Equal(t, production.JobStatusAssigned, job.Status)
	require.NotNil(t, job.AssignedTo)
	assert.Equal(t, shared.UserID(pressOperator), *job.AssignedTo)

	job = f.moveJob(t, job.ID, production.JobStatusInProgress, "")
	assert.NotNil(t, job.StartedAt)
	job = f.moveJob(t, job.ID, production.JobStatusQAReview, "proof printed")

	job = f.moveJob(t, job.ID, production.JobStatusInProgress, "colour off")
	assert.Equal(t, 1, job.ReworkCount)
	job = f.moveJob(t, job.ID, production.JobStatusQAReview, "reprinted")

	job = f.moveJob(t, job.ID, production.JobStatusCompleted, "")
	assert.NotNil(t, job.CompletedAt)
	require.NotNil(t, job.OrderStatus, "completing the last job readies the order")
	assert.Equal(t, sales.OrderStatusReady, *job.OrderStatus)

	order := f.moveOrder(t, orderID, sales.OrderStatusReleased)
	assert.Equal(t, sales.OrderStatusReleased, order.Status)

	w = f.api.AsClerk(t, http.MethodGet, url("/jobs/%d", job.ID), nil)
	testutil.RequireStatus(t, w, http.StatusOK)
	job = testutil.DecodeData[appproduction.JobResponse](t, w)
	assert.NotNil(t, job.DeliveredAt)
	assert.NotEmpty(t, job.History)
}

func TestJobHandler_Comments(t *testing.T) {
	f := newFixture(t)
	_, job := f.startProduction(t)

	w := f.api.AsClerk(t, http.MethodPost, url("/jobs/%d/comments", job.ID),
		appproduction.AddCommentRequest{Body: "customer wants matte finish"})
	testutil.RequireStatus(t, w, http.StatusCreated)
	comment := testutil.DecodeData[appproduction.CommentResponse](t, w)
	assert.Equal(t, shared.UserID(testutil.ClerkID), comment.AuthorID)
	assert.False(t, comment.IsSystem)

	w = f.api.AsClerk(t, http.MethodPost, url("/jobs/%d/comments", job.ID), appproduction.AddCommentRequest{})
	assertError(t, w, http.StatusBadRequest, string(shared.KindValidation))
}

func TestJobHandler_Errors(t *testing.T) {
	f := newFixture(t)
	_, job := f.startProduction(t)

	tests := []struct {
		name   string
		path   string
		body   any
		status int
		kind   shared.ErrorKind
	}{
		{
			name:   "skipping acceptance",
			path:   url("/jobs/%d/status", job.ID),
			body:   appproduction.UpdateJobStatusRequest{Status: production.JobStatusCompleted},
			status: http.StatusUnprocessableEntity,
			kind:   shared.KindInvalidTransition,
		},
		{
			name:   "unknown status",
			path:   url("/jobs/%d/status", job.ID),
			body:   map[string]string{"status": "SHIPPED"},
			status: http.StatusBadRequest,
			kind:   shared.KindValidation,
		},
		{
			name:   "assignee missing",
			path:   url("/jobs/%d/assign", job.ID),
			body:   map[string]any{},
			status: http.StatusBadRequest,
			kind:   shared.KindValidation,
		},
		{
			name:   "unknown job",
			path:   url("/jobs/%d/status", 9999),
			body:   appproduction.UpdateJobStatusRequest{Status: production.JobStatusAccepted},
			status: http.StatusNotFound,
			kind:   shared.KindNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.api.AsClerk(t, http.MethodPost, tt.path, tt.body)
			assertError(t, w, tt.status, string(tt.kind))
		})
	}
}

func TestOrderHandler_ListJobsUnknownOrder(t *testing.T) {
	f := newFixture(t)

	w := f.api.AsClerk(t, http.MethodGet, url("/orders/%d/jobs", 4242), nil)
	testutil.RequireStatus(t, w, http.StatusOK)
	assert.Empty(t, testutil.DecodeData[[]appproduction.JobResponse](t, w))
}
