package controller

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/teamreach/outreach-backend/internal/errors"
	"github.com/teamreach/outreach-backend/internal/model"
	"github.com/teamreach/outreach-backend/internal/service"
)

func newWorkflowController(workflows *stubWorkflowRepo, users *stubUserRepo, workspaces *stubWorkspaceRepo) *WorkflowController {
	return &WorkflowController{
		Workflows: workflows,
		Engine: &service.WorkflowEngine{
			Workflows: workflows,
			Users:     users,
			Activity:  &stubActivityRepo{},
			Sender:    &service.SenderResolver{Workspaces: workspaces},
			Gateway:   &stubGateway{},
			Logger:    zap.NewNop(),
		},
		Logger: zap.NewNop(),
	}
}

func TestListWorkflows(t *testing.T) {
	workflows := &stubWorkflowRepo{workflows: []*model.Workflow{
		{ID: "wf-1", TeamID: "T1", Name: "Welcome", Trigger: model.TriggerTeamJoin, MessageTemplate: "Hi", IsActive: true},
	}}
	ctrl := newWorkflowController(workflows, &stubUserRepo{}, authedWorkspace())

	req := httptest.NewRequest(http.MethodGet, "/workflows?team_id=T1", nil)
	rec := httptest.NewRecorder()
	ctrl.List(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Workflows []model.Workflow `json:"workflows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Workflows, 1)
	assert.Equal(t, "wf-1", body.Workflows[0].ID)

	req = httptest.NewRequest(http.MethodGet, "/workflows", nil)
	rec = httptest.NewRecorder()
	ctrl.List(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateWorkflow(t *testing.T) {
	workflows := &stubWorkflowRepo{}
	ctrl := newWorkflowController(workflows, &stubUserRepo{}, authedWorkspace())

	rec := postJSON(ctrl.Create, `{"team_id":"T1","name":"Welcome","trigger":"team_join","message_template":"Hi {{first_name}}"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, workflows.workflows, 1)
	assert.True(t, workflows.workflows[0].IsActive)
}

func TestCreateWorkflowValidation(t *testing.T) {
	ctrl := newWorkflowController(&stubWorkflowRepo{}, &stubUserRepo{}, authedWorkspace())

	for _, body := range []string{
		`{"team_id":"T1","name":"n","trigger":"bogus","message_template":"Hi"}`,
		`{"team_id":"T1","trigger":"team_join","message_template":"Hi"}`,
		`{"name":"n","trigger":"team_join","message_template":"Hi"}`,
	} {
		rec := postJSON(ctrl.Create, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body: %s", body)
	}
}

func TestCreateWorkflowDropsChannelFilterForTeamJoin(t *testing.T) {
	workflows := &stubWorkflowRepo{}
	ctrl := newWorkflowController(workflows, &stubUserRepo{}, authedWorkspace())

	rec := postJSON(ctrl.Create, `{"team_id":"T1","name":"Welcome","trigger":"team_join","channel_id":"C1","message_template":"Hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, workflows.workflows, 1)
	assert.Nil(t, workflows.workflows[0].ChannelID)
}

func TestCreateWorkflowKeepsChannelFilterForChannelJoin(t *testing.T) {
	workflows := &stubWorkflowRepo{}
	ctrl := newWorkflowController(workflows, &stubUserRepo{}, authedWorkspace())

	rec := postJSON(ctrl.Create, `{"team_id":"T1","name":"Intro","trigger":"member_joined_channel","channel_id":"C1","message_template":"Hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, workflows.workflows[0].ChannelID)
	assert.Equal(t, "C1", *workflows.workflows[0].ChannelID)
}

func TestUpdateWorkflow(t *testing.T) {
	workflows := &stubWorkflowRepo{}
	ctrl := newWorkflowController(workflows, &stubUserRepo{}, authedWorkspace())

	rec := postJSON(ctrl.Update, `{"id":"wf-1","team_id":"T1","name":"Welcome v2","trigger":"team_join","message_template":"Hi","is_active":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, workflows.updated)
	assert.Equal(t, "Welcome v2", workflows.updated.Name)
	assert.False(t, workflows.updated.IsActive)

	rec = postJSON(ctrl.Update, `{"team_id":"T1","name":"n","trigger":"team_join","message_template":"Hi"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateWorkflowNotFound(t *testing.T) {
	workflows := &stubWorkflowRepo{updateErr: appErrors.NewWorkflowNotFound("wf-missing")}
	ctrl := newWorkflowController(workflows, &stubUserRepo{}, authedWorkspace())

	rec := postJSON(ctrl.Update, `{"id":"wf-missing","team_id":"T1","name":"n","trigger":"team_join","message_template":"Hi"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBackfillEndpoint(t *testing.T) {
	createdAt := time.Now().Add(-48 * time.Hour)
	workflows := &stubWorkflowRepo{workflows: []*model.Workflow{
		{ID: "wf-1", TeamID: "T1", Name: "Welcome", Trigger: model.TriggerTeamJoin, MessageTemplate: "Hi {{first_name}}", IsActive: true},
	}}
	users := &stubUserRepo{users: map[string]*model.User{
		"U1": {TeamID: "T1", UserID: "U1", RealName: "Ada Lovelace", CreatedAt: &createdAt},
	}}
	ctrl := newWorkflowController(workflows, users, authedWorkspace())

	rec := postJSON(ctrl.Backfill, `{"team_id":"T1","workflow_id":"wf-1","days":30}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(1), body["processed"])
	assert.True(t, workflows.sends["U1"])
}

func TestBackfillEndpointErrors(t *testing.T) {
	t.Run("unknown workflow", func(t *testing.T) {
		ctrl := newWorkflowController(&stubWorkflowRepo{}, &stubUserRepo{}, authedWorkspace())
		rec := postJSON(ctrl.Backfill, `{"team_id":"T1","workflow_id":"wf-missing"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("channel trigger rejected", func(t *testing.T) {
		channelID := "C1"
		workflows := &stubWorkflowRepo{workflows: []*model.Workflow{
			{ID: "wf-1", TeamID: "T1", Trigger: model.TriggerMemberJoinedChannel, ChannelID: &channelID, MessageTemplate: "Hi", IsActive: true},
		}}
		ctrl := newWorkflowController(workflows, &stubUserRepo{}, authedWorkspace())
		rec := postJSON(ctrl.Backfill, `{"team_id":"T1","workflow_id":"wf-1"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "team_join")
	})

	t.Run("inactive workflow rejected", func(t *testing.T) {
		workflows := &stubWorkflowRepo{workflows: []*model.Workflow{
			{ID: "wf-1", TeamID: "T1", Trigger: model.TriggerTeamJoin, MessageTemplate: "Hi", IsActive: false},
		}}
		ctrl := newWorkflowController(workflows, &stubUserRepo{}, authedWorkspace())
		rec := postJSON(ctrl.Backfill, `{"team_id":"T1","workflow_id":"wf-1"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "inactive")
	})

	t.Run("missing fields", func(t *testing.T) {
		ctrl := newWorkflowController(&stubWorkflowRepo{}, &stubUserRepo{}, authedWorkspace())
		rec := postJSON(ctrl.Backfill, `{"team_id":"T1"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
