package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/academic-registrar-api/internal/models"
	"github.com/noah-isme/academic-registrar-api/internal/repository"
	appErrors "github.com/noah-isme/academic-registrar-api/pkg/errors"
)

type memoryMeetings struct {
	mu       sync.Mutex
	meetings map[string]models.SectionMeeting
	appts    *memoryAppointments
	seq      int
	calls    map[string]int
}

func newMemoryMeetings(appts *memoryAppointments) *memoryMeetings {
	return &memoryMeetings{meetings: map[string]models.SectionMeeting{}, appts: appts, calls: map[string]int{}}
}

func (m *memoryMeetings) add(meeting models.SectionMeeting) models.SectionMeeting {
	m.mu.Lock()
	defer m.mu.Unlock()
	if meeting.ID == "" {
		m.seq++
		meeting.ID = fmt.Sprintf("mtg-%03d", m.seq)
	}
	m.meetings[meeting.ID] = meeting
	return meeting
}

func (m *memoryMeetings) sorted(keep func(models.SectionMeeting) bool) []models.SectionMeeting {
	var out []models.SectionMeeting
	for _, meeting := range m.meetings {
		if keep(meeting) {
			out = append(out, meeting)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memoryMeetings) FindByID(ctx context.Context, id string) (*models.SectionMeeting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	meeting, ok := m.meetings[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &meeting, nil
}

func (m *memoryMeetings) ListBySection(ctx context.Context, sectionID string) ([]models.SectionMeeting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["ListBySection"]++
	return m.sorted(func(meeting models.SectionMeeting) bool { return meeting.SectionID == sectionID }), nil
}

func (m *memoryMeetings) ListRoomBookings(ctx context.Context, termID string, roomID int64, dayOfWeek int, excludeMeetingID string) ([]models.SectionMeeting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["ListRoomBookings"]++
	return m.sorted(func(meeting models.SectionMeeting) bool {
		return meeting.TermID == termID && meeting.RoomID != nil && *meeting.RoomID == roomID &&
			meeting.DayOfWeek == dayOfWeek && meeting.ID != excludeMeetingID
	}), nil
}

func (m *memoryMeetings) ListUserBookings(ctx context.Context, termID, userID string, dayOfWeek int, excludeSectionID, excludeMeetingID string) ([]models.TeacherBooking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["ListUserBookings"]++
	var out []models.TeacherBooking
	for _, appt := range m.appts.all() {
		if appt.UserID != userID || appt.TermID != termID || appt.SectionID == excludeSectionID {
			continue
		}
		for _, meeting := range m.sorted(func(meeting models.SectionMeeting) bool {
			return meeting.SectionID == appt.SectionID && meeting.DayOfWeek == dayOfWeek && meeting.ID != excludeMeetingID
		}) {
			out = append(out, models.TeacherBooking{SectionMeeting: meeting, UserID: userID, Role: appt.Role})
		}
	}
	return out, nil
}

func (m *memoryMeetings) Create(ctx context.Context, meeting *models.SectionMeeting) error {
	stored := m.add(*meeting)
	*meeting = stored
	return nil
}

func (m *memoryMeetings) Update(ctx context.Context, meeting *models.SectionMeeting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.meetings[meeting.ID]; !ok {
		return sql.ErrNoRows
	}
	m.meetings[meeting.ID] = *meeting
	return nil
}

func (m *memoryMeetings) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.meetings[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.meetings, id)
	return nil
}

type memoryAppointments struct {
	mu    sync.Mutex
	appts map[string]models.Appointment
	seq   int
}

func newMemoryAppointments() *memoryAppointments {
	return &memoryAppointments{appts: map[string]models.Appointment{}}
}

func (m *memoryAppointments) all() []models.Appointment {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Appointment, 0, len(m.appts))
	for _, a := range m.appts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memoryAppointments) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &a, nil
}

func (m *memoryAppointments) ListBySection(ctx context.Context, sectionID string) ([]models.Appointment, error) {
	var out []models.Appointment
	for _, a := range m.all() {
		if a.SectionID == sectionID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memoryAppointments) CreateWithinLoad(ctx context.Context, appt *models.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	load := 0
	for _, a := range m.appts {
		if a.SectionID != appt.SectionID {
			continue
		}
		if a.UserID == appt.UserID {
			return repository.ErrDuplicate
		}
		load += a.LoadPercent
	}
	if load+appt.LoadPercent > models.MaxSectionLoad {
		return repository.ErrLoadExceeded
	}
	m.seq++
	appt.ID = fmt.Sprintf("appt-%03d", m.seq)
	m.appts[appt.ID] = *appt
	return nil
}

func (m *memoryAppointments) UpdateWithinLoad(ctx context.Context, appt *models.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.appts[appt.ID]; !ok {
		return sql.ErrNoRows
	}
	load := 0
	for id, a := range m.appts {
		if a.SectionID == appt.SectionID && id != appt.ID {
			load += a.LoadPercent
		}
	}
	if load+appt.LoadPercent > models.MaxSectionLoad {
		return repository.ErrLoadExceeded
	}
	m.appts[appt.ID] = *appt
	return nil
}

func (m *memoryAppointments) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.appts[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.appts, id)
	return nil
}

type fakeRooms map[int64]*models.Room

func (f fakeRooms) FindByID(ctx context.Context, id int64) (*models.Room, error) {
	r, ok := f[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return r, nil
}

// memoryCache is a CacheRepository backed by a map of JSON payloads.
type memoryCache struct {
	mu          sync.Mutex
	entries     map[string][]byte
	invalidated []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}}
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(v, dest)
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = b
	return nil
}

func (c *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	return nil
}

func (c *memoryCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// scheduleFixture wires schedule, appointment and conflict services over
// in-memory stores. Sections s1..s3 share term-1 and a lecturer pool.
type scheduleFixture struct {
	sections  *fakeSections
	terms     *fakeTerms
	meetings  *memoryMeetings
	appts     *memoryAppointments
	cache     *memoryCache
	conflicts *ConflictService
	schedule  *ScheduleService
	appoint   *AppointmentService
}

func newScheduleFixture() *scheduleFixture {
	sections := newFakeSections(testSection("s1", 30, 5), testSection("s2", 30, 5), testSection("s3", 30, 5))
	terms := &fakeTerms{terms: map[string]*models.Term{"term-1": testTerm()}, sections: sections}
	appts := newMemoryAppointments()
	meetings := newMemoryMeetings(appts)
	cache := newMemoryCache()
	users := fakeUsers{
		"lect-1": {ID: "lect-1", FullName: "Ada Lovelace", Role: models.RoleLecturer},
		"lect-2": {ID: "lect-2", FullName: "Alan Turing", Role: models.RoleLecturer},
		"stu-1":  {ID: "stu-1", FullName: "Student 1", Role: models.RoleStudent},
	}
	rooms := fakeRooms{
		101: {ID: 101, Code: "R101", Name: "Room 101"},
		102: {ID: 102, Code: "R102", Name: "Room 102"},
	}

	cacheSvc := NewCacheService(cache, nil, time.Minute, nil, true)
	conflicts := NewConflictService(terms, meetings, appts, cacheSvc, time.Minute, nil, nil)
	return &scheduleFixture{
		sections:  sections,
		terms:     terms,
		meetings:  meetings,
		appts:     appts,
		cache:     cache,
		conflicts: conflicts,
		schedule:  NewScheduleService(meetings, sections, terms, rooms, conflicts, nil, nil),
		appoint:   NewAppointmentService(appts, sections, terms, users, conflicts, nil, nil),
	}
}

func roomID(id int64) *int64 { return &id }

func weekday(d time.Weekday) *int {
	v := int(d)
	return &v
}
