package notification_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	coremocks "presence.service/internal/core/mocks"
	"presence.service/internal/core/model"
	"presence.service/internal/ports/directory"
	dirmocks "presence.service/internal/ports/directory/mocks"
	"presence.service/internal/ports/messaging"
	"presence.service/internal/worker/notification"
)

type memoryDeduper struct {
	mu   sync.Mutex
	sent map[string]bool
}

func (d *memoryDeduper) Seen(_ context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sent[id], nil
}

func (d *memoryDeduper) Remember(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent[id] = true
	return nil
}

type ProcessorSuite struct {
	suite.Suite
	email  *coremocks.MockEmailService
	dir    *dirmocks.MockDirectory
	dedupe *memoryDeduper
	proc   *notification.Processor
	ctx    context.Context
}

func TestProcessorSuite(t *testing.T) {
	suite.Run(t, new(ProcessorSuite))
}

func (s *ProcessorSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.email = coremocks.NewMockEmailService(ctrl)
	s.dir = dirmocks.NewMockDirectory(ctrl)
	s.dedupe = &memoryDeduper{sent: map[string]bool{}}
	s.proc = notification.NewProcessor(s.email, s.dir, s.dedupe)
	s.ctx = context.Background()
}

func (s *ProcessorSuite) message(ev messaging.AttendanceEvent, receiveCount string) types.Message {
	body, err := json.Marshal(ev)
	s.Require().NoError(err)
	return types.Message{
		MessageId:  aws.String("m-" + ev.EventID),
		Body:       aws.String(string(body)),
		Attributes: map[string]string{"ApproximateReceiveCount": receiveCount},
	}
}

var asha = &model.Employee{ID: "emp-1", Email: "asha@example.com", FullName: "Asha Rao"}

func (s *ProcessorSuite) TestCheckOutSendsSummaryOnce() {
	ev := messaging.AttendanceEvent{EventID: "ev-1", Type: messaging.EventCheckedOut, EmployeeID: "emp-1", Day: "2026-03-02", HoursWorked: 8.5}
	s.dir.EXPECT().FindByIDOrEmail(gomock.Any(), "emp-1").Return(asha, nil)
	s.email.EXPECT().SendCheckOutSummary(gomock.Any(), "asha@example.com", "Asha Rao", "2026-03-02", 8.5).Return(nil)

	retry, _, err := s.proc.Process(s.ctx, s.message(ev, "1"))
	s.NoError(err)
	s.False(retry)

	retry, _, err = s.proc.Process(s.ctx, s.message(ev, "2"))
	s.NoError(err, "redelivery is acknowledged without a second email")
	s.False(retry)
}

func (s *ProcessorSuite) TestAbsenceSendsNotice() {
	ev := messaging.AttendanceEvent{EventID: "ev-2", Type: messaging.EventMarkedAbsent, EmployeeID: "emp-1", Day: "2026-03-02"}
	s.dir.EXPECT().FindByIDOrEmail(gomock.Any(), "emp-1").Return(asha, nil)
	s.email.EXPECT().SendAbsenceNotice(gomock.Any(), "asha@example.com", "Asha Rao", "2026-03-02").Return(nil)

	_, _, err := s.proc.Process(s.ctx, s.message(ev, "1"))
	s.NoError(err)
}

func (s *ProcessorSuite) TestOtherEventsAreAcknowledged() {
	ev := messaging.AttendanceEvent{EventID: "ev-3", Type: messaging.EventCheckedIn, EmployeeID: "emp-1"}
	retry, _, err := s.proc.Process(s.ctx, s.message(ev, "1"))
	s.NoError(err)
	s.False(retry)
}

func (s *ProcessorSuite) TestSendFailureRetriesWithBackoff() {
	ev := messaging.AttendanceEvent{EventID: "ev-4", Type: messaging.EventCheckedOut, EmployeeID: "emp-1", Day: "2026-03-02", HoursWorked: 1}
	s.dir.EXPECT().FindByIDOrEmail(gomock.Any(), "emp-1").Return(asha, nil)
	s.email.EXPECT().SendCheckOutSummary(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errors.New("throttled"))

	retry, delay, err := s.proc.Process(s.ctx, s.message(ev, "3"))
	s.Error(err)
	s.True(retry)
	s.Equal(int32(80), delay)
	s.False(s.dedupe.sent["ev-4"])
}

func (s *ProcessorSuite) TestDirectoryFailures() {
	ev := messaging.AttendanceEvent{EventID: "ev-5", Type: messaging.EventMarkedAbsent, EmployeeID: "gone"}

	s.dir.EXPECT().FindByIDOrEmail(gomock.Any(), "gone").Return(nil, directory.ErrEmployeeNotFound)
	retry, _, err := s.proc.Process(s.ctx, s.message(ev, "1"))
	s.NoError(err, "unknown recipient is dropped")
	s.False(retry)

	s.dir.EXPECT().FindByIDOrEmail(gomock.Any(), "gone").Return(nil, errors.New("db down"))
	retry, _, err = s.proc.Process(s.ctx, s.message(ev, "1"))
	s.Error(err)
	s.True(retry)
}

func (s *ProcessorSuite) TestMalformedMessageIsNotRetried() {
	retry, _, err := s.proc.Process(s.ctx, types.Message{Body: aws.String("{not json")})
	s.Error(err)
	s.False(retry)
}
