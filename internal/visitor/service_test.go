package visitor

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"visitorlog/internal/photo"
	"visitorlog/internal/queue"
	"visitorlog/internal/store"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func fakeCamera(t *testing.T) photo.Camera {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.Set(1, 1, color.White)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png: %v", err)
	}
	raw := buf.Bytes()
	return photo.CameraFunc(func(context.Context) ([]byte, error) { return raw, nil })
}

type recordingPublisher struct {
	msgs []queue.Message
}

func (p *recordingPublisher) Publish(_ context.Context, msg queue.Message) error {
	p.msgs = append(p.msgs, msg)
	return nil
}

var fixedNow = time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

func newTestService(t *testing.T, slots store.Slots, pub Publisher) *Service {
	t.Helper()
	repo := NewRepository(slots, "", quietLogger())
	return NewService(repo, Options{
		Clock:    func() time.Time { return fixedNow },
		Location: time.UTC,
		Events:   pub,
		Logger:   quietLogger(),
	})
}

func seed(t *testing.T, slots store.Slots, records ...Record) {
	t.Helper()
	if err := NewRepository(slots, "", quietLogger()).SaveAll(context.Background(), records); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func validForm() Form {
	return Form{
		Name:               " Thandi ",
		Surname:            "Nkosi",
		Company:            "Acme",
		VisitorPhoneNumber: "+27 82 123 4567",
		ReasonForVisit:     "Interview",
		Host:               "Lerato",
		AgreementSigned:    true,
	}
}

func TestRepository_LoadAll_AbsentIsEmpty(t *testing.T) {
	repo := NewRepository(store.NewMemory(), "", quietLogger())
	got, err := repo.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

func TestRepository_LoadAll_MalformedIsEmpty(t *testing.T) {
	slots := store.NewMemory()
	for _, raw := range []string{"{not json", `{"id":"x"}`, "null", `"text"`} {
		_ = slots.Set(context.Background(), DefaultKey, raw)
		got, err := NewRepository(slots, "", quietLogger()).LoadAll(context.Background())
		if err != nil {
			t.Fatalf("%q: unexpected error %v", raw, err)
		}
		if len(got) != 0 {
			t.Errorf("%q: expected empty, got %d records", raw, len(got))
		}
	}
}

func TestRepository_RoundTripStable(t *testing.T) {
	slots := store.NewMemory()
	seed(t, slots,
		Record{ID: "a", Name: "A", Date: "2026-10-01", TimeIn: "08:00", TimeOut: "09:00", AgreementSigned: true},
		Record{ID: "b", Name: "B", Company: "", Date: "2026-10-02", TimeIn: "10:15"},
	)
	repo := NewRepository(slots, "", quietLogger())
	ctx := context.Background()

	first, err := repo.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	rawBefore, _, _ := slots.Get(ctx, DefaultKey)
	if err := repo.SaveAll(ctx, first); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}
	second, _ := repo.LoadAll(ctx)
	rawAfter, _, _ := slots.Get(ctx, DefaultKey)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("round trip changed records:\n%#v\n%#v", first, second)
	}
	if rawBefore != rawAfter {
		t.Errorf("round trip changed stored text")
	}
}

type failingSlots struct{}

func (failingSlots) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("backend down")
}
func (failingSlots) Set(context.Context, string, string) error { return errors.New("backend down") }
func (failingSlots) Clear(context.Context, string) error       { return errors.New("backend down") }

func TestRepository_BackendErrorsPropagate(t *testing.T) {
	repo := NewRepository(failingSlots{}, "", quietLogger())
	if _, err := repo.LoadAll(context.Background()); err == nil {
		t.Error("expected LoadAll error")
	}
	if err := repo.SaveAll(context.Background(), nil); err == nil {
		t.Error("expected SaveAll error")
	}
}

func TestSignIn_CreatesRecord(t *testing.T) {
	slots := store.NewMemory()
	pub := &recordingPublisher{}
	svc := newTestService(t, slots, pub)

	rec, err := svc.SignIn(context.Background(), validForm(), fakeCamera(t))
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if rec.ID == "" {
		t.Error("expected generated id")
	}
	if rec.Name != "Thandi" {
		t.Errorf("name not trimmed: %q", rec.Name)
	}
	if rec.Date != "2026-10-17" || rec.TimeIn != "09:30" {
		t.Errorf("date/time = %s %s", rec.Date, rec.TimeIn)
	}
	if rec.TimeOut != "" || !rec.CheckedIn() {
		t.Error("new record must be checked in")
	}
	if !rec.AgreementSigned {
		t.Error("agreement flag not set")
	}
	if !strings.HasPrefix(rec.Photo, "data:image/jpeg;base64,") {
		t.Errorf("photo not a jpeg data URI: %.30s", rec.Photo)
	}
	if rec.VisitorPhoneNumber != "+27821234567" {
		t.Errorf("phone = %q", rec.VisitorPhoneNumber)
	}

	all, _ := svc.List(context.Background())
	if len(all) != 1 || all[0].ID != rec.ID {
		t.Fatalf("stored records = %#v", all)
	}
	if len(pub.msgs) != 1 || pub.msgs[0].Type != queue.TypeSignedIn || string(pub.msgs[0].Body) != rec.ID {
		t.Errorf("published = %#v", pub.msgs)
	}
}

func TestSignIn_IDsAreUnique(t *testing.T) {
	svc := newTestService(t, store.NewMemory(), nil)
	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		rec, err := svc.SignIn(context.Background(), validForm(), fakeCamera(t))
		if err != nil {
			t.Fatalf("SignIn: %v", err)
		}
		if seen[rec.ID] {
			t.Fatalf("duplicate id %s", rec.ID)
		}
		seen[rec.ID] = true
	}
}

func TestSignIn_RequiresAgreement(t *testing.T) {
	slots := store.NewMemory()
	svc := newTestService(t, slots, nil)
	form := validForm()
	form.AgreementSigned = false

	if _, err := svc.SignIn(context.Background(), form, fakeCamera(t)); !errors.Is(err, ErrAgreementRequired) {
		t.Fatalf("expected ErrAgreementRequired, got %v", err)
	}
	if all, _ := svc.List(context.Background()); len(all) != 0 {
		t.Error("record must not be created without agreement")
	}
}

func TestSignIn_ValidatesRequiredFields(t *testing.T) {
	svc := newTestService(t, store.NewMemory(), nil)
	form := validForm()
	form.Surname = "   "
	form.Host = ""

	_, err := svc.SignIn(context.Background(), form, fakeCamera(t))
	if !errors.Is(err, ErrInvalidForm) {
		t.Fatalf("expected ErrInvalidForm, got %v", err)
	}
	if !strings.Contains(err.Error(), "Surname") || !strings.Contains(err.Error(), "Host") {
		t.Errorf("error should name the missing fields: %v", err)
	}
}

func TestSignIn_RequiresPhoto(t *testing.T) {
	svc := newTestService(t, store.NewMemory(), nil)
	if _, err := svc.SignIn(context.Background(), validForm(), nil); !errors.Is(err, photo.ErrNoPhoto) {
		t.Errorf("nil camera: got %v", err)
	}
	empty := photo.CameraFunc(func(context.Context) ([]byte, error) { return nil, nil })
	if _, err := svc.SignIn(context.Background(), validForm(), empty); !errors.Is(err, photo.ErrNoPhoto) {
		t.Errorf("empty capture: got %v", err)
	}
}

func TestSignOut_OnlyTouchesTarget(t *testing.T) {
	slots := store.NewMemory()
	a := Record{ID: "a", Name: "A", Date: "2026-10-17", TimeIn: "08:00"}
	b := Record{ID: "b", Name: "B", Date: "2026-10-16", TimeIn: "09:00"}
	c := Record{ID: "c", Name: "C", Date: "2026-10-15", TimeIn: "10:00", TimeOut: "11:00"}
	seed(t, slots, a, b, c)
	svc := newTestService(t, slots, nil)

	out, err := svc.SignOut(context.Background(), "b")
	if err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if out.TimeOut != "09:30" {
		t.Errorf("TimeOut = %q", out.TimeOut)
	}

	all, _ := svc.List(context.Background())
	if !reflect.DeepEqual(all[0], a) || !reflect.DeepEqual(all[2], c) {
		t.Errorf("other records changed: %#v", all)
	}
	if all[1].TimeOut == "" {
		t.Error("target not signed out")
	}
}

func TestSignOut_OverwritesExistingTimeOut(t *testing.T) {
	slots := store.NewMemory()
	seed(t, slots, Record{ID: "c", TimeIn: "10:00", TimeOut: "11:00"})
	svc := newTestService(t, slots, nil)

	out, err := svc.SignOut(context.Background(), "c")
	if err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if out.TimeOut != "09:30" {
		t.Errorf("expected overwritten TimeOut, got %q", out.TimeOut)
	}
}

func TestSignOut_UnknownID(t *testing.T) {
	svc := newTestService(t, store.NewMemory(), nil)
	if _, err := svc.SignOut(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v", err)
	}
}

func TestDelete_RemovesExactlyOne(t *testing.T) {
	slots := store.NewMemory()
	seed(t, slots,
		Record{ID: "a"}, Record{ID: "b"}, Record{ID: "c"}, Record{ID: "d"},
	)
	svc := newTestService(t, slots, nil)

	if err := svc.Delete(context.Background(), "b"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	all, _ := svc.List(context.Background())
	var ids []string
	for _, r := range all {
		ids = append(ids, r.ID)
	}
	if strings.Join(ids, ",") != "a,c,d" {
		t.Errorf("remaining = %v", ids)
	}

	if err := svc.Delete(context.Background(), "b"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: got %v", err)
	}
	after, _ := svc.List(context.Background())
	if len(after) != 3 {
		t.Errorf("failed delete must not change count, got %d", len(after))
	}
}

func TestEdit_ReplacesWholesale(t *testing.T) {
	slots := store.NewMemory()
	seed(t, slots,
		Record{ID: "a", Name: "Old", Surname: "Name", Company: "X", Host: "H", TimeOut: "12:00"},
		Record{ID: "b", Name: "Keep"},
	)
	svc := newTestService(t, slots, nil)

	rev := Record{ID: "a", Name: "New", Surname: "Name", Host: "H2", Date: "2026-10-10", TimeIn: "07:45"}
	if _, err := svc.Edit(context.Background(), rev); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	got, err := svc.Get(context.Background(), "a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !reflect.DeepEqual(got, rev) {
		t.Errorf("got %#v, want %#v", got, rev)
	}
	if b, _ := svc.Get(context.Background(), "b"); b.Name != "Keep" {
		t.Error("other record touched")
	}
}

func TestEdit_Errors(t *testing.T) {
	slots := store.NewMemory()
	seed(t, slots, Record{ID: "a", Name: "A", Surname: "B"})
	svc := newTestService(t, slots, nil)

	if _, err := svc.Edit(context.Background(), Record{ID: "zzz", Name: "A", Surname: "B"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown id: got %v", err)
	}
	if _, err := svc.Edit(context.Background(), Record{ID: "a", Name: "", Surname: "B"}); !errors.Is(err, ErrInvalidForm) {
		t.Errorf("empty name: got %v", err)
	}
}

func TestEdit_KeepsPhotoOffloadedAfterRead(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, store.NewMemory(), nil)
	rec, err := svc.SignIn(ctx, validForm(), fakeCamera(t))
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	rev, err := svc.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if err := svc.SetPhoto(ctx, rec.ID, "https://cdn.example/x.jpg"); err != nil {
		t.Fatalf("SetPhoto: %v", err)
	}
	rev.Host = "Sipho"
	if _, err := svc.Edit(ctx, rev); err != nil {
		t.Fatalf("Edit: %v", err)
	}

	got, _ := svc.Get(ctx, rec.ID)
	if got.Photo != "https://cdn.example/x.jpg" {
		t.Errorf("photo = %.40q, want the hosted URL", got.Photo)
	}
	if got.Host != "Sipho" || !got.AgreementSigned {
		t.Errorf("got %+v", got)
	}
}

func TestUpdate_RevisesStoredRecord(t *testing.T) {
	ctx := context.Background()
	slots := store.NewMemory()
	seed(t, slots, Record{ID: "a", Name: "A", Surname: "B", Photo: "https://cdn.example/a.jpg"})
	svc := newTestService(t, slots, nil)

	got, err := svc.Update(ctx, "a", func(cur Record) (Record, error) {
		if cur.Photo != "https://cdn.example/a.jpg" {
			t.Errorf("revise saw photo %q", cur.Photo)
		}
		cur.Company = " Globex "
		cur.Surname = " Bee "
		return cur, nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Surname != "Bee" || got.Company != " Globex " {
		t.Errorf("got %+v", got)
	}

	boom := errors.New("bad revision")
	if _, err := svc.Update(ctx, "a", func(Record) (Record, error) { return Record{}, boom }); !errors.Is(err, boom) {
		t.Errorf("revise error: got %v", err)
	}
	if _, err := svc.Update(ctx, "zzz", func(r Record) (Record, error) { return r, nil }); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown id: got %v", err)
	}
	if stored, _ := svc.Get(ctx, "a"); stored.Surname != "Bee" {
		t.Errorf("failed update changed the record: %+v", stored)
	}
}

func TestSetPhoto(t *testing.T) {
	slots := store.NewMemory()
	seed(t, slots, Record{ID: "a", Photo: "data:image/jpeg;base64,AAAA"})
	svc := newTestService(t, slots, nil)

	if err := svc.SetPhoto(context.Background(), "a", "https://cdn.example/a.jpg"); err != nil {
		t.Fatalf("SetPhoto: %v", err)
	}
	got, _ := svc.Get(context.Background(), "a")
	if got.Photo != "https://cdn.example/a.jpg" {
		t.Errorf("photo = %q", got.Photo)
	}
}

func TestNormalizePhone(t *testing.T) {
	cases := []struct{ in, want string }{
		{"+27 82 123 4567", "+27821234567"},
		{"082 123 4567", "+27821234567"},
		{"  front desk ", "front desk"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizePhone(tc.in, "ZA"); got != tc.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
