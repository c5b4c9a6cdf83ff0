package core_test

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"presence.service/internal/core"
	"presence.service/internal/core/geo"
	"presence.service/internal/core/model"
	"presence.service/internal/core/workday"
	"presence.service/internal/ports/directory"
	dirmocks "presence.service/internal/ports/directory/mocks"
	"presence.service/internal/ports/messaging"
	msgmocks "presence.service/internal/ports/messaging/mocks"
	"presence.service/internal/ports/repository"
	"presence.service/pkg/metrics"
)

var office = geo.Point{Lat: 18.432941, Lng: 73.886954}

func ptr(f float64) *float64 { return &f }

type AttendanceServiceSuite struct {
	suite.Suite
	ctx     context.Context
	loc     *time.Location
	repo    *repository.InMemoryRepository
	dir     *dirmocks.MockDirectory
	pub     *msgmocks.MockPublisher
	metrics *metrics.Attendance
	svc     *core.AttendanceService

	mu         sync.Mutex
	now        time.Time
	events     []messaging.AttendanceEvent
	publishErr error

	asha    model.Caller
	ravi    model.Caller
	manager model.Caller
	hr      model.Caller
}

func TestAttendanceServiceSuite(t *testing.T) {
	suite.Run(t, new(AttendanceServiceSuite))
}

var employees = []model.Employee{
	{ID: "emp-1", Email: "asha@example.com", FullName: "Asha Rao", Role: model.RoleEmployee, DepartmentName: "Assembly"},
	{ID: "emp-2", Email: "ravi@example.com", FullName: "Ravi Kumar", Role: model.RoleEmployee, DepartmentName: "Packing"},
	{ID: "mgr-1", Email: "meera@example.com", FullName: "Meera Shah", Role: model.RoleManager},
	{ID: "hr-1", Email: "hr@example.com", FullName: "Hari Iyer", Role: model.RoleHR},
}

func findEmployee(_ context.Context, key string) (*model.Employee, error) {
	for _, e := range employees {
		if e.ID == key || strings.EqualFold(e.Email, key) {
			emp := e
			return &emp, nil
		}
	}
	return nil, directory.ErrEmployeeNotFound
}

func (s *AttendanceServiceSuite) SetupTest() {
	var err error
	s.ctx = context.Background()
	s.loc, err = time.LoadLocation("Asia/Kolkata")
	s.Require().NoError(err)

	ctrl := gomock.NewController(s.T())
	s.dir = dirmocks.NewMockDirectory(ctrl)
	s.dir.EXPECT().FindByIDOrEmail(gomock.Any(), gomock.Any()).DoAndReturn(findEmployee).AnyTimes()

	pub := msgmocks.NewMockPublisher(ctrl)
	s.pub = pub
	pub.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, ev messaging.AttendanceEvent) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.events = append(s.events, ev)
		return s.publishErr
	}).AnyTimes()

	s.events = nil
	s.publishErr = nil
	s.now = s.at(9, 30)
	s.repo = repository.NewInMemoryRepository()
	s.metrics = metrics.NewAttendance(prometheus.NewRegistry())
	s.svc = core.NewAttendanceService(
		s.repo, s.dir, pub,
		geo.Fence{Center: office, RadiusMeters: 6000},
		workday.DefaultPolicy(s.loc),
		s.metrics,
		core.WithClock(s.clock),
	)

	s.asha = model.Caller{Subject: "asha@example.com", Role: model.RoleEmployee}
	s.ravi = model.Caller{Subject: "emp-2", Role: model.RoleEmployee}
	s.manager = model.Caller{Subject: "mgr-1", Role: model.RoleManager}
	s.hr = model.Caller{Subject: "hr-1", Role: model.RoleHR}
}

func (s *AttendanceServiceSuite) at(hour, minute int) time.Time {
	return time.Date(2026, 3, 2, hour, minute, 0, 0, s.loc)
}

func (s *AttendanceServiceSuite) clock() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *AttendanceServiceSuite) setClock(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = t
}

func (s *AttendanceServiceSuite) publishedTypes() []messaging.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	types := make([]messaging.EventType, 0, len(s.events))
	for _, ev := range s.events {
		types = append(types, ev.Type)
	}
	return types
}

func (s *AttendanceServiceSuite) recordsOf(employeeID string) []model.AttendanceRecord {
	records, err := s.repo.ListByEmployee(s.ctx, employeeID)
	s.Require().NoError(err)
	return records
}

func (s *AttendanceServiceSuite) geoCheckIn(caller model.Caller, lat, lng float64, now time.Time) (core.CheckInResult, error) {
	return s.svc.AutoGeoCheckIn(s.ctx, caller, ptr(lat), ptr(lng), now)
}

func (s *AttendanceServiceSuite) TestGeoCheckInBeforeLateCutoffIsPresent() {
	result, err := s.geoCheckIn(s.asha, 18.433000, 73.887000, s.at(9, 30))
	s.Require().NoError(err)
	s.False(result.AlreadyMarked)
	s.Require().NotNil(result.Record)
	s.Equal(model.StatusPresent, result.Record.Status)
	s.Equal("emp-1", result.Record.EmployeeID)
	s.True(result.Record.CheckInAt.Equal(s.at(9, 30)))
	s.True(result.Record.Day.Equal(time.Date(2026, 3, 2, 0, 0, 0, 0, s.loc)))

	s.Equal([]messaging.EventType{messaging.EventCheckedIn}, s.publishedTypes())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.CheckIns.WithLabelValues("present", "geo")))
}

func (s *AttendanceServiceSuite) TestGeoCheckInBetweenCutoffsIsLate() {
	result, err := s.geoCheckIn(s.asha, 18.433000, 73.887000, s.at(11, 0))
	s.Require().NoError(err)
	s.Equal(model.StatusLate, result.Record.Status)
	s.NotNil(result.Record.CheckInAt)
}

func (s *AttendanceServiceSuite) TestGeoCheckInAfterHardCutoffMarksAbsent() {
	result, err := s.geoCheckIn(s.asha, 18.433000, 73.887000, s.at(13, 30))
	s.Require().Error(err)
	s.ErrorIs(err, core.ErrForbidden)
	s.Equal("time exceeded, marked absent", core.MessageOf(err))
	s.Require().NotNil(result.Record, "absent record is returned with the rejection")
	s.Equal(model.StatusAbsent, result.Record.Status)
	s.Nil(result.Record.CheckInAt)

	records := s.recordsOf("emp-1")
	s.Require().Len(records, 1)
	s.Equal(model.StatusAbsent, records[0].Status)
	s.Equal([]messaging.EventType{messaging.EventMarkedAbsent}, s.publishedTypes())

	s.Run("calling again the same day is idempotent", func() {
		again, err := s.geoCheckIn(s.asha, 18.433000, 73.887000, s.at(13, 45))
		s.Require().NoError(err)
		s.True(again.AlreadyMarked)
		s.Equal(result.Record.ID, again.Record.ID)
		s.Len(s.recordsOf("emp-1"), 1)
		s.Len(s.publishedTypes(), 1, "no event for a no-op")
	})

	s.Run("a manual check-in cannot revive the day", func() {
		s.setClock(s.at(14, 0))
		_, err := s.svc.ManualCheckIn(s.ctx, s.asha, "")
		s.ErrorIs(err, core.ErrConflict)
		s.Nil(s.recordsOf("emp-1")[0].CheckInAt)
	})
}

func (s *AttendanceServiceSuite) TestGeoCheckInCutoffBoundaries() {
	result, err := s.geoCheckIn(s.asha, 18.433, 73.887, s.at(10, 0))
	s.Require().NoError(err)
	s.Equal(model.StatusLate, result.Record.Status, "late cutoff itself is late")

	_, err = s.geoCheckIn(s.ravi, 18.433, 73.887, s.at(13, 0))
	s.ErrorIs(err, core.ErrForbidden, "hard cutoff itself is blocked")
	s.Equal(model.StatusAbsent, s.recordsOf("emp-2")[0].Status)
}

func (s *AttendanceServiceSuite) TestGeoCheckInOutsideFence() {
	_, err := s.geoCheckIn(s.asha, 19.0, 74.0, s.at(9, 0))
	s.ErrorIs(err, core.ErrForbidden)
	s.Equal("outside allowed area", core.MessageOf(err))

	all, listErr := s.repo.ListAll(s.ctx)
	s.Require().NoError(listErr)
	s.Empty(all)
	s.Empty(s.publishedTypes())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.GeofenceRejections))
}

func (s *AttendanceServiceSuite) TestGeoCheckInIsIdempotent() {
	first, err := s.geoCheckIn(s.asha, 18.433, 73.887, s.at(9, 30))
	s.Require().NoError(err)

	second, err := s.geoCheckIn(s.asha, 18.433, 73.887, s.at(9, 35))
	s.Require().NoError(err)
	s.True(second.AlreadyMarked)
	s.Equal(first.Record.ID, second.Record.ID)
	s.True(second.Record.CheckInAt.Equal(s.at(9, 30)), "record is returned unchanged")
	s.Len(s.recordsOf("emp-1"), 1)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.AlreadyMarked))
}

func (s *AttendanceServiceSuite) TestGeoCheckInRejections() {
	tests := []struct {
		name     string
		caller   model.Caller
		lat, lng *float64
		want     error
	}{
		{"manager role", s.manager, ptr(18.433), ptr(73.887), core.ErrForbidden},
		{"hr role", s.hr, ptr(18.433), ptr(73.887), core.ErrForbidden},
		{"unknown role", model.Caller{Subject: "emp-1", Role: "owner"}, ptr(18.433), ptr(73.887), core.ErrForbidden},
		{"missing latitude", s.asha, nil, ptr(73.887), core.ErrValidation},
		{"missing longitude", s.asha, ptr(18.433), nil, core.ErrValidation},
		{"latitude out of range", s.asha, ptr(91), ptr(73.887), core.ErrValidation},
		{"longitude not a number", s.asha, ptr(18.433), ptr(math.NaN()), core.ErrValidation},
		{"unknown employee", model.Caller{Subject: "ghost@example.com", Role: model.RoleEmployee}, ptr(18.433), ptr(73.887), core.ErrNotFound},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.svc.AutoGeoCheckIn(s.ctx, tt.caller, tt.lat, tt.lng, s.at(9, 0))
			s.ErrorIs(err, tt.want)
		})
	}

	all, err := s.repo.ListAll(s.ctx)
	s.Require().NoError(err)
	s.Empty(all, "rejected calls never write")
}

func (s *AttendanceServiceSuite) TestManualCheckOutWithoutCheckIn() {
	_, err := s.svc.ManualCheckOut(s.ctx, s.asha, "")
	s.ErrorIs(err, core.ErrNotFound)
	s.Equal("no check-in today", core.MessageOf(err))
}

func (s *AttendanceServiceSuite) TestManualCheckInAndOut() {
	rec, err := s.svc.ManualCheckIn(s.ctx, s.asha, "")
	s.Require().NoError(err)
	s.Equal(model.StatusPresent, rec.Status)
	s.Equal("emp-1", rec.EmployeeID)

	_, err = s.svc.ManualCheckIn(s.ctx, s.asha, "emp-1")
	s.ErrorIs(err, core.ErrConflict)
	s.Equal("already checked in", core.MessageOf(err))

	s.setClock(s.at(18, 0))
	out, err := s.svc.ManualCheckOut(s.ctx, s.asha, "")
	s.Require().NoError(err)
	s.Require().NotNil(out.CheckOutAt)
	s.InDelta(8.5, out.HoursWorked(), 1e-9)

	_, err = s.svc.ManualCheckOut(s.ctx, s.asha, "")
	s.ErrorIs(err, core.ErrConflict)
	s.Equal("already checked out", core.MessageOf(err))

	s.Equal([]messaging.EventType{messaging.EventCheckedIn, messaging.EventCheckedOut}, s.publishedTypes())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.CheckOuts))
}

func (s *AttendanceServiceSuite) TestManualCheckInForSomeoneElse() {
	_, err := s.svc.ManualCheckIn(s.ctx, s.asha, "emp-2")
	s.ErrorIs(err, core.ErrForbidden, "employees act only for themselves")

	rec, err := s.svc.ManualCheckIn(s.ctx, s.manager, "ravi@example.com")
	s.Require().NoError(err)
	s.Equal("emp-2", rec.EmployeeID)

	_, err = s.svc.ManualCheckOut(s.ctx, s.asha, "emp-2")
	s.ErrorIs(err, core.ErrForbidden)

	_, err = s.svc.ManualCheckIn(s.ctx, s.manager, "nobody")
	s.ErrorIs(err, core.ErrNotFound)
}

func (s *AttendanceServiceSuite) TestManualCheckInFillsRecordWithoutCheckIn() {
	_, err := s.repo.Insert(s.ctx, model.AttendanceRecord{
		EmployeeID: "emp-1", Day: time.Date(2026, 3, 2, 0, 0, 0, 0, s.loc), Status: model.StatusLate,
	})
	s.Require().NoError(err)

	rec, err := s.svc.ManualCheckIn(s.ctx, s.asha, "")
	s.Require().NoError(err)
	s.Require().NotNil(rec.CheckInAt)
	s.True(rec.CheckInAt.Equal(s.at(9, 30)))
	s.Equal(model.StatusPresent, rec.Status)
	s.Len(s.recordsOf("emp-1"), 1)
}

func (s *AttendanceServiceSuite) TestConcurrentCheckInsLeaveOneRecord() {
	const goroutines = 50
	var wg sync.WaitGroup
	var unexpected atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			if i%2 == 0 {
				_, err = s.geoCheckIn(s.asha, 18.433, 73.887, s.at(9, 30))
			} else {
				_, err = s.svc.ManualCheckIn(s.ctx, s.asha, "")
			}
			// A manual check-in that observes the winner's record is a conflict.
			if err != nil && !errors.Is(err, core.ErrConflict) {
				unexpected.Add(1)
			}
		}(i)
	}
	wg.Wait()

	s.Zero(unexpected.Load())
	s.Len(s.recordsOf("emp-1"), 1)
	s.Equal([]messaging.EventType{messaging.EventCheckedIn}, s.publishedTypes())
}

// lookupHookRepo runs afterLookup between reading today's record and
// handing it back, widening the window a check-in acts on a stale read.
type lookupHookRepo struct {
	*repository.InMemoryRepository
	afterLookup func()
}

func (r lookupHookRepo) FindByEmployeeAndDay(ctx context.Context, employeeID string, day time.Time) (*model.AttendanceRecord, error) {
	rec, err := r.InMemoryRepository.FindByEmployeeAndDay(ctx, employeeID, day)
	r.afterLookup()
	return rec, err
}

func (s *AttendanceServiceSuite) serviceOver(repo repository.Repository) *core.AttendanceService {
	return core.NewAttendanceService(
		repo, s.dir, s.pub,
		geo.Fence{Center: office, RadiusMeters: 6000},
		workday.DefaultPolicy(s.loc),
		s.metrics,
		core.WithClock(s.clock),
	)
}

func (s *AttendanceServiceSuite) TestConcurrentFillOfRecordWithoutCheckInHasOneWinner() {
	_, err := s.repo.Insert(s.ctx, model.AttendanceRecord{
		EmployeeID: "emp-1", Day: time.Date(2026, 3, 2, 0, 0, 0, 0, s.loc), Status: model.StatusPresent,
	})
	s.Require().NoError(err)
	svc := s.serviceOver(lookupHookRepo{
		InMemoryRepository: s.repo,
		afterLookup:        func() { time.Sleep(20 * time.Millisecond) },
	})

	const goroutines = 10
	var wg sync.WaitGroup
	var successes, conflicts atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ManualCheckIn(s.ctx, s.asha, "")
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, core.ErrConflict):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successes.Load())
	s.Equal(int32(goroutines-1), conflicts.Load())
	s.Equal([]messaging.EventType{messaging.EventCheckedIn}, s.publishedTypes())
}

func (s *AttendanceServiceSuite) TestCheckInDoesNotReviveDayMarkedAbsentMeanwhile() {
	rec, err := s.repo.Insert(s.ctx, model.AttendanceRecord{
		EmployeeID: "emp-1", Day: time.Date(2026, 3, 2, 0, 0, 0, 0, s.loc), Status: model.StatusLate,
	})
	s.Require().NoError(err)

	var once sync.Once
	svc := s.serviceOver(lookupHookRepo{
		InMemoryRepository: s.repo,
		afterLookup: func() {
			once.Do(func() {
				absent := model.StatusAbsent
				_, err := s.repo.Update(s.ctx, rec.ID, model.RecordPatch{Status: &absent})
				s.Require().NoError(err)
			})
		},
	})

	_, err = svc.ManualCheckIn(s.ctx, s.asha, "")
	s.ErrorIs(err, core.ErrConflict)

	stored, err := s.repo.FindByID(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(model.StatusAbsent, stored.Status)
	s.Nil(stored.CheckInAt)
	s.Empty(s.publishedTypes())
}

func (s *AttendanceServiceSuite) TestConcurrentCheckOutsExactlyOneSucceeds() {
	_, err := s.svc.ManualCheckIn(s.ctx, s.asha, "")
	s.Require().NoError(err)
	s.setClock(s.at(17, 0))

	const goroutines = 20
	var wg sync.WaitGroup
	var successes, conflicts atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.svc.ManualCheckOut(s.ctx, s.asha, "")
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, core.ErrConflict):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successes.Load())
	s.Equal(int32(goroutines-1), conflicts.Load())
}

func (s *AttendanceServiceSuite) TestAutoGeoCheckOut() {
	_, err := s.geoCheckIn(s.asha, 18.433, 73.887, s.at(9, 30))
	s.Require().NoError(err)

	_, err = s.svc.AutoGeoCheckOut(s.ctx, s.asha, ptr(19.0), ptr(74.0), s.at(18, 0))
	s.ErrorIs(err, core.ErrForbidden, "outside the fence")

	_, err = s.svc.AutoGeoCheckOut(s.ctx, s.manager, ptr(18.433), ptr(73.887), s.at(18, 0))
	s.ErrorIs(err, core.ErrForbidden, "employees only")

	rec, err := s.svc.AutoGeoCheckOut(s.ctx, s.asha, ptr(18.433), ptr(73.887), s.at(18, 0))
	s.Require().NoError(err)
	s.InDelta(8.5, rec.HoursWorked(), 1e-9)

	_, err = s.svc.AutoGeoCheckOut(s.ctx, s.ravi, ptr(18.433), ptr(73.887), s.at(18, 0))
	s.ErrorIs(err, core.ErrNotFound)
}

func (s *AttendanceServiceSuite) TestPublishFailureDoesNotFailOperation() {
	s.publishErr = errors.New("queue unavailable")

	result, err := s.geoCheckIn(s.asha, 18.433, 73.887, s.at(9, 30))
	s.Require().NoError(err)
	s.NotEmpty(result.Record.ID)
	s.Len(s.publishedTypes(), 1)
}

func (s *AttendanceServiceSuite) TestCreateAttendance() {
	in := time.Date(2026, 3, 1, 9, 0, 0, 0, s.loc)
	out := time.Date(2026, 3, 1, 17, 0, 0, 0, s.loc)
	input := core.CreateAttendanceInput{
		EmployeeID: "emp-2",
		Day:        time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC),
		CheckInAt:  &in,
		CheckOutAt: &out,
		Status:     model.StatusPresent,
	}

	rec, err := s.svc.CreateAttendance(s.ctx, s.hr, input)
	s.Require().NoError(err)
	s.True(rec.Day.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, s.loc)), "day normalized to the configured zone")
	s.Equal([]messaging.EventType{messaging.EventCreated}, s.publishedTypes())

	_, err = s.svc.CreateAttendance(s.ctx, s.hr, input)
	s.ErrorIs(err, core.ErrConflict)

	bad := input
	bad.Day = time.Date(2026, 2, 27, 0, 0, 0, 0, s.loc)
	bad.Status = model.StatusAbsent
	_, err = s.svc.CreateAttendance(s.ctx, s.hr, bad)
	s.ErrorIs(err, core.ErrValidation, "absent with a check-in")

	bad = input
	bad.Day = time.Date(2026, 2, 26, 0, 0, 0, 0, s.loc)
	bad.CheckInAt = nil
	_, err = s.svc.CreateAttendance(s.ctx, s.hr, bad)
	s.ErrorIs(err, core.ErrValidation, "check-out without check-in")

	bad = input
	bad.Status = "holiday"
	_, err = s.svc.CreateAttendance(s.ctx, s.hr, bad)
	s.ErrorIs(err, core.ErrValidation)

	_, err = s.svc.CreateAttendance(s.ctx, s.manager, input)
	s.ErrorIs(err, core.ErrForbidden)

	bad = input
	bad.EmployeeID = "ghost"
	_, err = s.svc.CreateAttendance(s.ctx, s.hr, bad)
	s.ErrorIs(err, core.ErrNotFound)
}

func (s *AttendanceServiceSuite) TestUpdateAttendance() {
	checkedIn, err := s.svc.ManualCheckIn(s.ctx, s.asha, "")
	s.Require().NoError(err)
	absent, err := s.repo.Insert(s.ctx, model.AttendanceRecord{
		EmployeeID: "emp-1", Day: time.Date(2026, 3, 1, 0, 0, 0, 0, s.loc), Status: model.StatusAbsent,
	})
	s.Require().NoError(err)

	absentStatus := model.StatusAbsent
	outAt := s.at(19, 0)
	beforeIn := s.at(8, 0)
	collide := time.Date(2026, 3, 1, 12, 0, 0, 0, s.loc)
	bogus := model.AttendanceStatus("holiday")

	tests := []struct {
		name  string
		id    string
		patch model.RecordPatch
		want  error
	}{
		{"empty patch", checkedIn.ID, model.RecordPatch{}, core.ErrValidation},
		{"unknown status", checkedIn.ID, model.RecordPatch{Status: &bogus}, core.ErrValidation},
		{"absent with check-in", checkedIn.ID, model.RecordPatch{Status: &absentStatus}, core.ErrValidation},
		{"check-out without check-in", absent.ID, model.RecordPatch{CheckOutAt: &outAt}, core.ErrValidation},
		{"check-out before check-in", checkedIn.ID, model.RecordPatch{CheckOutAt: &beforeIn}, core.ErrValidation},
		{"day collision", checkedIn.ID, model.RecordPatch{Day: &collide}, core.ErrConflict},
		{"missing record", "nope", model.RecordPatch{CheckOutAt: &outAt}, core.ErrNotFound},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.svc.UpdateAttendance(s.ctx, s.hr, tt.id, tt.patch)
			s.ErrorIs(err, tt.want)
		})
	}

	s.Run("retroactive check-out bypasses the sequence", func() {
		rec, err := s.svc.UpdateAttendance(s.ctx, s.hr, checkedIn.ID, model.RecordPatch{CheckOutAt: &outAt})
		s.Require().NoError(err)
		s.True(rec.CheckOutAt.Equal(outAt))
	})

	s.Run("clearing check-in together with marking absent", func() {
		rec, err := s.svc.UpdateAttendance(s.ctx, s.hr, checkedIn.ID, model.RecordPatch{
			Status: &absentStatus, ClearCheckIn: true, ClearCheckOut: true,
		})
		s.Require().NoError(err)
		s.Equal(model.StatusAbsent, rec.Status)
		s.Nil(rec.CheckInAt)
	})

	s.Run("employees may not update", func() {
		_, err := s.svc.UpdateAttendance(s.ctx, s.asha, checkedIn.ID, model.RecordPatch{CheckOutAt: &outAt})
		s.ErrorIs(err, core.ErrForbidden)
	})
}

func (s *AttendanceServiceSuite) TestDeleteAttendance() {
	rec, err := s.svc.ManualCheckIn(s.ctx, s.asha, "")
	s.Require().NoError(err)

	s.ErrorIs(s.svc.DeleteAttendance(s.ctx, s.manager, rec.ID), core.ErrForbidden)
	s.Require().NoError(s.svc.DeleteAttendance(s.ctx, s.hr, rec.ID))
	s.ErrorIs(s.svc.DeleteAttendance(s.ctx, s.hr, rec.ID), core.ErrNotFound)
	s.Empty(s.recordsOf("emp-1"))

	types := s.publishedTypes()
	s.Equal(messaging.EventDeleted, types[len(types)-1])
}
