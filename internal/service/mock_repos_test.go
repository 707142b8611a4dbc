package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"studydesk/backend/internal/model"
	"studydesk/backend/internal/repository"
)

// ── 测试用 Repository 聚合 ──

type testRepos struct {
	users       *mockUserRepo
	courses     *mockCourseRepo
	tasks       *mockTaskRepo
	links       *mockLinkRepo
	notes       *mockNoteRepo
	attachments *mockAttachmentRepo
	schedules   *mockCourseScheduleRepo
}

func newTestRepos() (*repository.Repository, *testRepos) {
	atts := newMockAttachmentRepo()
	r := &testRepos{
		users:       newMockUserRepo(),
		courses:     newMockCourseRepo(),
		tasks:       newMockTaskRepo(),
		links:       newMockLinkRepo(),
		notes:       newMockNoteRepo(atts),
		attachments: atts,
		schedules:   newMockCourseScheduleRepo(),
	}
	return &repository.Repository{
		User:           r.users,
		Course:         r.courses,
		Task:           r.tasks,
		Link:           r.links,
		Note:           r.notes,
		Attachment:     r.attachments,
		CourseSchedule: r.schedules,
	}, r
}

var idSeq struct {
	sync.Mutex
	n int
}

func nextID(prefix string) string {
	idSeq.Lock()
	defer idSeq.Unlock()
	idSeq.n++
	return fmt.Sprintf("%s-%04d", prefix, idSeq.n)
}

func stamp(b *model.BaseModel) {
	now := time.Now()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User // key: user_id
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		user.UserID = nextID("user")
	}
	stamp(&user.BaseModel)
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByStudentID(_ context.Context, studentID string) (*model.User, error) {
	for _, u := range m.users {
		if u.StudentID == studentID {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	m.users[user.UserID] = user
	return nil
}

// ── Mock CourseRepository ──

type mockCourseRepo struct {
	courses map[string]*model.Course
}

func newMockCourseRepo() *mockCourseRepo {
	return &mockCourseRepo{courses: make(map[string]*model.Course)}
}

func (m *mockCourseRepo) Create(_ context.Context, c *model.Course) error {
	if c.CourseID == "" {
		c.CourseID = nextID("course")
	}
	stamp(&c.BaseModel)
	m.courses[c.CourseID] = c
	return nil
}

func (m *mockCourseRepo) GetByID(_ context.Context, userID, id string) (*model.Course, error) {
	if c, ok := m.courses[id]; ok && c.UserID == userID {
		cp := *c
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCourseRepo) GetByName(_ context.Context, userID, name string) (*model.Course, error) {
	for _, c := range m.courses {
		if c.UserID == userID && c.Name == name {
			cp := *c
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCourseRepo) List(_ context.Context, userID string) ([]model.Course, error) {
	var out []model.Course
	for _, c := range m.courses {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockCourseRepo) Update(_ context.Context, c *model.Course) error {
	stamp(&c.BaseModel)
	cp := *c
	m.courses[c.CourseID] = &cp
	return nil
}

func (m *mockCourseRepo) Delete(_ context.Context, userID, id string) error {
	if c, ok := m.courses[id]; ok && c.UserID == userID {
		delete(m.courses, id)
		return nil
	}
	return gorm.ErrRecordNotFound
}

// ── Mock TaskRepository ──

type mockTaskRepo struct {
	tasks      map[string]*model.Task
	replaceErr error
	replaced   int // ReplaceByUser 调用次数
}

func newMockTaskRepo() *mockTaskRepo {
	return &mockTaskRepo{tasks: make(map[string]*model.Task)}
}

func (m *mockTaskRepo) Create(_ context.Context, t *model.Task) error {
	if t.TaskID == "" {
		t.TaskID = nextID("task")
	}
	stamp(&t.BaseModel)
	cp := *t
	m.tasks[t.TaskID] = &cp
	return nil
}

func (m *mockTaskRepo) GetByID(_ context.Context, userID, id string) (*model.Task, error) {
	if t, ok := m.tasks[id]; ok && t.UserID == userID {
		cp := *t
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTaskRepo) List(_ context.Context, userID string) ([]model.Task, error) {
	var out []model.Task
	for _, t := range m.tasks {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].DueAt, out[j].DueAt
		switch {
		case a == nil && b == nil:
			return out[i].TaskID < out[j].TaskID
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
	return out, nil
}

func (m *mockTaskRepo) Update(_ context.Context, t *model.Task) error {
	stamp(&t.BaseModel)
	cp := *t
	m.tasks[t.TaskID] = &cp
	return nil
}

func (m *mockTaskRepo) Delete(_ context.Context, userID, id string) error {
	if t, ok := m.tasks[id]; ok && t.UserID == userID {
		delete(m.tasks, id)
		return nil
	}
	return gorm.ErrRecordNotFound
}

func (m *mockTaskRepo) ReplaceByUser(ctx context.Context, userID string, tasks []model.Task) error {
	m.replaced++
	if m.replaceErr != nil {
		return m.replaceErr
	}
	for id, t := range m.tasks {
		if t.UserID == userID {
			delete(m.tasks, id)
		}
	}
	for i := range tasks {
		_ = m.Create(ctx, &tasks[i])
	}
	return nil
}

// ── Mock LinkRepository ──

type mockLinkRepo struct {
	links map[string]*model.Link
}

func newMockLinkRepo() *mockLinkRepo {
	return &mockLinkRepo{links: make(map[string]*model.Link)}
}

func (m *mockLinkRepo) Create(_ context.Context, l *model.Link) error {
	if l.LinkID == "" {
		l.LinkID = nextID("link")
	}
	stamp(&l.BaseModel)
	m.links[l.LinkID] = l
	return nil
}

func (m *mockLinkRepo) GetByID(_ context.Context, userID, id string) (*model.Link, error) {
	if l, ok := m.links[id]; ok && l.UserID == userID {
		cp := *l
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockLinkRepo) List(_ context.Context, userID, category string) ([]model.Link, error) {
	var out []model.Link
	for _, l := range m.links {
		if l.UserID == userID && (category == "" || l.Category == category) {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LinkID < out[j].LinkID })
	return out, nil
}

func (m *mockLinkRepo) Update(_ context.Context, l *model.Link) error {
	cp := *l
	m.links[l.LinkID] = &cp
	return nil
}

func (m *mockLinkRepo) Delete(_ context.Context, userID, id string) error {
	if l, ok := m.links[id]; ok && l.UserID == userID {
		delete(m.links, id)
		return nil
	}
	return gorm.ErrRecordNotFound
}

// ── Mock NoteRepository ──

type mockNoteRepo struct {
	notes map[string]*model.Note
	atts  *mockAttachmentRepo
	err   error // CreateWithAttachments 返回的错误
}

func newMockNoteRepo(atts *mockAttachmentRepo) *mockNoteRepo {
	return &mockNoteRepo{notes: make(map[string]*model.Note), atts: atts}
}

func (m *mockNoteRepo) Create(_ context.Context, n *model.Note) error {
	if n.NoteID == "" {
		n.NoteID = nextID("note")
	}
	stamp(&n.BaseModel)
	cp := *n
	cp.Attachments = nil
	m.notes[n.NoteID] = &cp
	return nil
}

func (m *mockNoteRepo) CreateWithAttachments(ctx context.Context, n *model.Note, atts []model.NoteAttachment) error {
	if m.err != nil {
		return m.err
	}
	_ = m.Create(ctx, n)
	for i := range atts {
		atts[i].NoteID = n.NoteID
		_ = m.atts.Create(ctx, &atts[i])
	}
	n.Attachments = atts
	return nil
}

func (m *mockNoteRepo) GetByID(ctx context.Context, userID, id string) (*model.Note, error) {
	n, ok := m.notes[id]
	if !ok || n.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *n
	cp.Attachments, _ = m.atts.ListByNote(ctx, id)
	return &cp, nil
}

func (m *mockNoteRepo) List(_ context.Context, userID, courseID string) ([]model.Note, error) {
	var out []model.Note
	for _, n := range m.notes {
		if n.UserID != userID {
			continue
		}
		if courseID != "" && (n.CourseID == nil || *n.CourseID != courseID) {
			continue
		}
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NoteID < out[j].NoteID })
	return out, nil
}

func (m *mockNoteRepo) Update(_ context.Context, n *model.Note) error {
	stamp(&n.BaseModel)
	cp := *n
	cp.Attachments = nil
	m.notes[n.NoteID] = &cp
	return nil
}

func (m *mockNoteRepo) Delete(_ context.Context, userID, id string) error {
	if n, ok := m.notes[id]; ok && n.UserID == userID {
		delete(m.notes, id)
		return nil
	}
	return gorm.ErrRecordNotFound
}

// ── Mock AttachmentRepository ──

type mockAttachmentRepo struct {
	atts map[string]*model.NoteAttachment
}

func newMockAttachmentRepo() *mockAttachmentRepo {
	return &mockAttachmentRepo{atts: make(map[string]*model.NoteAttachment)}
}

func (m *mockAttachmentRepo) Create(_ context.Context, a *model.NoteAttachment) error {
	if a.AttachmentID == "" {
		a.AttachmentID = nextID("att")
	}
	stamp(&a.BaseModel)
	cp := *a
	m.atts[a.AttachmentID] = &cp
	return nil
}

func (m *mockAttachmentRepo) GetByID(_ context.Context, noteID, id string) (*model.NoteAttachment, error) {
	if a, ok := m.atts[id]; ok && a.NoteID == noteID {
		cp := *a
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAttachmentRepo) ListByNote(_ context.Context, noteID string) ([]model.NoteAttachment, error) {
	var out []model.NoteAttachment
	for _, a := range m.atts {
		if a.NoteID == noteID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AttachmentID < out[j].AttachmentID })
	return out, nil
}

func (m *mockAttachmentRepo) Delete(_ context.Context, noteID, id string) error {
	if a, ok := m.atts[id]; ok && a.NoteID == noteID {
		delete(m.atts, id)
		return nil
	}
	return gorm.ErrRecordNotFound
}

func (m *mockAttachmentRepo) DeleteByNote(_ context.Context, noteID string) error {
	for id, a := range m.atts {
		if a.NoteID == noteID {
			delete(m.atts, id)
		}
	}
	return nil
}

// ── Mock CourseScheduleRepository ──

type mockCourseScheduleRepo struct {
	courses map[string][]model.CourseSchedule // key: user_id
}

func newMockCourseScheduleRepo() *mockCourseScheduleRepo {
	return &mockCourseScheduleRepo{courses: make(map[string][]model.CourseSchedule)}
}

func (m *mockCourseScheduleRepo) ListByUser(_ context.Context, userID string) ([]model.CourseSchedule, error) {
	return m.courses[userID], nil
}

func (m *mockCourseScheduleRepo) ReplaceByUser(_ context.Context, userID string, courses []model.CourseSchedule) error {
	for i := range courses {
		if courses[i].CourseScheduleID == "" {
			courses[i].CourseScheduleID = nextID("cs")
		}
	}
	m.courses[userID] = courses
	return nil
}
