package contract_test

import (
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/aula-go-api/internal/dto"
	"github.com/noah-isme/aula-go-api/internal/handler"
	"github.com/noah-isme/aula-go-api/internal/models"
	"github.com/noah-isme/aula-go-api/internal/service"
	"github.com/noah-isme/aula-go-api/pkg/bigbluebutton"
)

type stubMeetingService struct {
	result service.JoinResult
}

func (s stubMeetingService) Join(context.Context, models.Instance, service.Actor, uint, int) (service.JoinResult, error) {
	return s.result, nil
}

func (s stubMeetingService) IsRunning(context.Context, models.Instance, uint) (bool, error) {
	return false, nil
}

func (s stubMeetingService) Recordings(context.Context, models.Instance, uint) ([]bigbluebutton.Recording, error) {
	return nil, nil
}

func (s stubMeetingService) RecordingPlayed(context.Context, models.Instance, service.Actor, string) error {
	return nil
}

func (s stubMeetingService) HandleCallback(context.Context, models.Instance, string, string) (int64, bool, error) {
	return 0, false, nil
}

type stubInstanceService struct {
	instance models.Instance
}

func (s stubInstanceService) Create(context.Context, dto.InstanceCreateRequest, service.Actor) (dto.InstanceResponse, error) {
	return dto.InstanceResponse{}, nil
}

func (s stubInstanceService) Update(context.Context, uint, dto.InstanceUpdateRequest, service.Actor) (dto.InstanceResponse, error) {
	return dto.InstanceResponse{}, nil
}

func (s stubInstanceService) Delete(context.Context, uint, service.Actor) error {
	return nil
}

func (s stubInstanceService) Get(context.Context, uint) (models.Instance, error) {
	return s.instance, nil
}

func (s stubInstanceService) ListByCourse(context.Context, uint) ([]dto.InstanceResponse, error) {
	return nil, nil
}

func (s stubInstanceService) Schedule(context.Context, uint) ([]dto.ScheduleEntryResponse, error) {
	return nil, nil
}

func (s stubInstanceService) AttachPresentation(context.Context, uint, *multipart.FileHeader) (dto.InstanceResponse, error) {
	return dto.InstanceResponse{}, nil
}

func TestJoinResponseContract(t *testing.T) {
	schemaPath, err := filepath.Abs(filepath.Join("..", "contracts", "join_response.schema.json"))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile("file://" + schemaPath)
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Second)
	closing := now.Add(time.Hour)

	cases := map[string]service.JoinResult{
		"joinable": {
			State:       service.StateJoinableDirect,
			JoinURL:     "https://conf.example/join?meetingID=mtg-1-7-3",
			ClosingTime: &closing,
		},
		"waiting": {
			State:        service.StateJoinableWaiting,
			PollInterval: 10 * time.Second,
		},
		"closed with recordings": {
			State: service.StateClosed,
			Recordings: []bigbluebutton.Recording{
				{
					RecordID:    "rec-1",
					MeetingID:   "mtg-1-7-3",
					Name:        "Weekly standup",
					PlaybackURL: "https://conf.example/playback/rec-1",
					StartTime:   now.Add(-2 * time.Hour),
					EndTime:     now.Add(-time.Hour),
					Published:   true,
				},
			},
		},
	}

	for name, result := range cases {
		t.Run(name, func(t *testing.T) {
			meetings := stubMeetingService{result: result}
			instances := stubInstanceService{instance: models.Instance{ID: 1, CourseID: 7, Name: "Weekly standup", MeetingID: "mtg-1"}}

			meetingHandler := handler.NewMeetingHandler(meetings, instances, 10*time.Second, zerolog.Nop())

			app := fiber.New()
			group := app.Group("/api/v1/instances", func(c *fiber.Ctx) error {
				c.Locals("user_id", uint(42))
				c.Locals("user_role", "viewer")
				return c.Next()
			})
			meetingHandler.Register(group)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/instances/1/join", nil)
			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, http.StatusOK, resp.StatusCode)

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			resp.Body.Close()

			var payload interface{}
			require.NoError(t, json.Unmarshal(body, &payload))
			require.NoError(t, schema.Validate(payload))
		})
	}
}
