package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/rideparty/internal/models"
)

type fakeDB struct {
	ExecFunc     func(ctx context.Context, sql string, args ...any) (CommandTag, error)
	QueryFunc    func(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRowFunc func(ctx context.Context, sql string, args ...any) Row
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	if f.ExecFunc == nil {
		return fakeCommandTag{}, errors.New("unexpected Exec")
	}
	return f.ExecFunc(ctx, sql, args...)
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	if f.QueryFunc == nil {
		return nil, errors.New("unexpected Query")
	}
	return f.QueryFunc(ctx, sql, args...)
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) Row {
	if f.QueryRowFunc == nil {
		return fakeRow{scanFunc: func(dest ...any) error { return errors.New("unexpected QueryRow") }}
	}
	return f.QueryRowFunc(ctx, sql, args...)
}

type fakeCommandTag struct {
	rowsAffected int64
}

func (t fakeCommandTag) RowsAffected() int64 { return t.rowsAffected }

type fakeRow struct {
	scanFunc func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error { return r.scanFunc(dest...) }

func rowFromValues(values ...any) Row {
	return fakeRow{scanFunc: func(dest ...any) error {
		return assignValues(dest, values)
	}}
}

func errRow(err error) Row {
	return fakeRow{scanFunc: func(dest ...any) error { return err }}
}

type fakeRows struct {
	rows    [][]any
	idx     int
	scanErr error
	err     error
	closed  bool
}

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	return assignValues(dest, r.rows[r.idx-1])
}

func (r *fakeRows) Close()     { r.closed = true }
func (r *fakeRows) Err() error { return r.err }

func assignValues(dest []any, values []any) error {
	if len(dest) != len(values) {
		return fmt.Errorf("scan: expected %d values, got %d", len(dest), len(values))
	}
	for i := range dest {
		if err := assignValue(dest[i], values[i]); err != nil {
			return fmt.Errorf("scan column %d: %w", i, err)
		}
	}
	return nil
}

func assignValue(dest any, value any) error {
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Pointer || dv.IsNil() {
		return fmt.Errorf("destination %T is not a pointer", dest)
	}
	target := dv.Elem()

	if value == nil {
		target.Set(reflect.Zero(target.Type()))
		return nil
	}

	v := reflect.ValueOf(value)
	switch {
	case v.Type().AssignableTo(target.Type()):
		target.Set(v)
	case v.Kind() == target.Kind() && v.Type().ConvertibleTo(target.Type()):
		target.Set(v.Convert(target.Type()))
	case target.Kind() == reflect.Pointer:
		elem := reflect.New(target.Type().Elem())
		if err := assignValue(elem.Interface(), value); err != nil {
			return err
		}
		target.Set(elem)
	default:
		return fmt.Errorf("cannot assign %T to %s", value, target.Type())
	}
	return nil
}

type fakeRedis struct {
	mu          sync.Mutex
	values      map[string]string
	setErr      error
	getValue    string
	getErr      error
	expireErr   error
	delErr      error
	setCalls    int
	getCalls    int
	expireCalls int
	delCalls    int
}

func (f *fakeRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCalls++
	if f.setErr != nil {
		return f.setErr
	}
	if f.values == nil {
		f.values = map[string]string{}
	}
	switch v := value.(type) {
	case []byte:
		f.values[key] = string(v)
	case string:
		f.values[key] = v
	default:
		f.values[key] = fmt.Sprint(v)
	}
	return nil
}

func (f *fakeRedis) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.getErr != nil {
		return "", f.getErr
	}
	if v, ok := f.values[key]; ok {
		return v, nil
	}
	return f.getValue, nil
}

func (f *fakeRedis) Expire(ctx context.Context, key string, expiration time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expireCalls++
	return f.expireErr
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delCalls += len(keys)
	for _, k := range keys {
		delete(f.values, k)
	}
	return f.delErr
}

type fakeFriendChecker struct {
	isFriend bool
	err      error
	calls    int
}

func (f *fakeFriendChecker) IsFriend(ctx context.Context, userID, otherUserID uuid.UUID) (bool, error) {
	f.calls++
	return f.isFriend, f.err
}

type fakePartyReader struct {
	party        *models.Party
	getErr       error
	summaries    map[uuid.UUID]models.PartySummary
	summariesErr error
	getCalls     int
}

func (f *fakePartyReader) Get(ctx context.Context, partyID uuid.UUID) (*models.Party, error) {
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	p := *f.party
	return &p, nil
}

func (f *fakePartyReader) GetSummaries(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.PartySummary, error) {
	return f.summaries, f.summariesErr
}

type fakeProfileReader struct {
	summaries map[uuid.UUID]models.ProfileSummary
	err       error
	requested [][]uuid.UUID
}

func (f *fakeProfileReader) GetSummaries(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.ProfileSummary, error) {
	f.requested = append(f.requested, ids)
	if f.err != nil {
		return nil, f.err
	}
	return f.summaries, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []models.ChangeEvent
	err    error
}

func (f *fakePublisher) Publish(ctx context.Context, event models.ChangeEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return f.err
}

type fakeMessagePublisher struct {
	channel string
	payload any
	err     error
}

func (f *fakeMessagePublisher) Publish(ctx context.Context, channel string, message any) error {
	f.channel = channel
	f.payload = message
	return f.err
}
