package flows

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"
)

type mapNotes map[string]string

func (m mapNotes) ClientNote(name string) string { return m[name] }

type deviceCall struct {
	userID, name, cpuid, visitorID string
}

type fakeDevices struct {
	calls []deviceCall
	err   error
}

func (f *fakeDevices) create(_ context.Context, userID, name, cpuid, visitorID string) error {
	f.calls = append(f.calls, deviceCall{userID, name, cpuid, visitorID})
	return f.err
}

var (
	errTestConfig = errors.New("test configuration")
	errTestMarker = errors.New("test marker")
)

func testAuthenticateDeps(store *memStore, rec *recorder, devices *fakeDevices, rendered *[]Form) AuthenticateDeps {
	return AuthenticateDeps{
		TemplateID:    "secret-question",
		DefaultMaxAge: 120 * time.Second,
		Messages: StepMessages{
			InvalidAnswer:  "invalidAnswer",
			AnswerRequired: "answerRequired",
		},
		Credentials: testCredentialDeps(store, rec),
		DeviceBinding: DeviceBindingDeps{
			DeriveName:             true,
			CreateDeviceCredential: devices.create,
			DeriveDeviceName: func(cpuid, visitorID string) string {
				if cpuid == "" && visitorID == "" {
					return ""
				}
				return "device-" + cpuid + visitorID
			},
			MetricInc: rec.inc,
			EmitAudit: rec.audit,
			Metrics:   DeviceBindingMetrics{DeviceBound: mBound, DeviceBindingFailed: mBindFailed},
			Events:    DeviceBindingEvents{DeviceBound: "bound", DeviceBindingFailed: "bind_failed"},
		},
		IssueMarker: func(path string, maxAge time.Duration) (*http.Cookie, error) {
			return &http.Cookie{Name: "SECRET_QUESTION_ANSWERED", Value: "true", Path: path, MaxAge: int(maxAge / time.Second)}, nil
		},
		MarkerPresent: func(cookies []*http.Cookie, path string) bool {
			for _, c := range cookies {
				if c.Name == "SECRET_QUESTION_ANSWERED" && c.Value == "true" {
					return true
				}
			}
			return false
		},
		Render: func(_ context.Context, f Form) (any, error) {
			*rendered = append(*rendered, f)
			return f.TemplateID, nil
		},
		Translate: func(locale, id string) string { return locale + ":" + id },
		MetricInc: rec.inc,
		EmitAudit: rec.audit,
		Metrics:   AuthenticateMetrics{ChallengePresented: mChallenge, BypassHonored: mBypass, MarkerIssued: mMarker},
		Events:    AuthenticateEvents{ChallengePresented: "challenge", BypassHonored: "bypass"},
		Errors:    AuthenticateErrors{Configuration: errTestConfig, Marker: errTestMarker},
	}
}

func actionRequest(answer string, notes Notes, options map[string]string) StepRequest {
	return StepRequest{
		UserID:              "u1",
		Realm:               "acme",
		BaseURI:             "https://id.example.com/auth/",
		Locale:              "zh",
		Form:                url.Values{FieldAnswer: {answer}},
		Notes:               notes,
		AuthenticatorConfig: options,
	}
}

func TestAuthenticatePresentsChallenge(t *testing.T) {
	store := newMemStore()
	rec := newRecorder()
	var rendered []Form
	store.put(t, "c2", "u1", "Second?", "b", time.Unix(2, 0))
	store.put(t, "c1", "u1", "First?", "a", time.Unix(1, 0))

	res, err := RunAuthenticate(context.Background(), StepRequest{UserID: "u1", Realm: "acme"}, testAuthenticateDeps(store, rec, &fakeDevices{}, &rendered))
	if err != nil {
		t.Fatalf("RunAuthenticate failed: %v", err)
	}
	if res.Status != StepChallenge || res.Marker != nil {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(rendered) != 1 || rendered[0].Question != "First?" || len(rendered[0].Options) != 2 {
		t.Fatalf("unexpected form: %+v", rendered)
	}
	if rendered[0].Options[1].ID != "c2" {
		t.Fatalf("options not in default order: %+v", rendered[0].Options)
	}
	if rec.count(mChallenge) != 1 {
		t.Fatal("expected challenge metric")
	}
}

func TestAuthenticateIgnoresMarkerByDefault(t *testing.T) {
	store := newMemStore()
	var rendered []Form
	store.put(t, "c1", "u1", "Q", "a", time.Unix(1, 0))
	req := StepRequest{
		UserID:  "u1",
		Realm:   "acme",
		Cookies: []*http.Cookie{{Name: "SECRET_QUESTION_ANSWERED", Value: "true"}},
	}

	res, err := RunAuthenticate(context.Background(), req, testAuthenticateDeps(store, newRecorder(), &fakeDevices{}, &rendered))
	if err != nil {
		t.Fatalf("RunAuthenticate failed: %v", err)
	}
	if res.Status != StepChallenge {
		t.Fatalf("marker must not skip the challenge unless enabled, got %+v", res)
	}

	rec := newRecorder()
	deps := testAuthenticateDeps(store, rec, &fakeDevices{}, &rendered)
	deps.SkipWithMarker = true
	res, err = RunAuthenticate(context.Background(), req, deps)
	if err != nil {
		t.Fatalf("RunAuthenticate failed: %v", err)
	}
	if res.Status != StepSuccess || rec.count(mBypass) != 1 {
		t.Fatalf("expected bypass success, got %+v", res)
	}
}

func TestActionCorrectAnswerIssuesMarker(t *testing.T) {
	store := newMemStore()
	rec := newRecorder()
	devices := &fakeDevices{}
	var rendered []Form
	store.put(t, "c1", "u1", "Q", "blue", time.Unix(1, 0))

	res, err := RunAction(context.Background(), actionRequest("blue", nil, nil), testAuthenticateDeps(store, rec, devices, &rendered))
	if err != nil {
		t.Fatalf("RunAction failed: %v", err)
	}
	if res.Status != StepSuccess || res.Marker == nil {
		t.Fatalf("expected success with marker, got %+v", res)
	}
	if res.Marker.Path != "/auth/realms/acme" || res.Marker.MaxAge != 120 {
		t.Fatalf("unexpected marker: %+v", res.Marker)
	}
	if len(devices.calls) != 0 {
		t.Fatal("device binding must not run without registeringDevice note")
	}
}

func TestActionWrongAnswerRechallenges(t *testing.T) {
	store := newMemStore()
	var rendered []Form
	store.put(t, "c1", "u1", "Q", "blue", time.Unix(1, 0))

	res, err := RunAction(context.Background(), actionRequest("green", nil, nil), testAuthenticateDeps(store, newRecorder(), &fakeDevices{}, &rendered))
	if err != nil {
		t.Fatalf("RunAction failed: %v", err)
	}
	if res.Status != StepFailureChallenge || res.Marker != nil || res.FlowError != FlowErrorInvalidCredentials {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(rendered) != 1 || rendered[0].Error != "zh:invalidAnswer" {
		t.Fatalf("expected localized error on form, got %+v", rendered)
	}
}

func TestActionMaxAgeOption(t *testing.T) {
	store := newMemStore()
	var rendered []Form
	store.put(t, "c1", "u1", "Q", "blue", time.Unix(1, 0))
	deps := testAuthenticateDeps(store, newRecorder(), &fakeDevices{}, &rendered)

	res, err := RunAction(context.Background(), actionRequest("blue", nil, map[string]string{ConfigMaxAge: "300"}), deps)
	if err != nil {
		t.Fatalf("RunAction failed: %v", err)
	}
	if res.Marker.MaxAge != 300 {
		t.Fatalf("expected max age 300, got %d", res.Marker.MaxAge)
	}

	for _, bad := range []string{"abc", "-5", "0"} {
		_, err := RunAction(context.Background(), actionRequest("blue", nil, map[string]string{ConfigMaxAge: bad}), deps)
		if !errors.Is(err, errTestConfig) {
			t.Fatalf("max age %q: expected configuration error, got %v", bad, err)
		}
	}
}

func TestActionBindsDevice(t *testing.T) {
	store := newMemStore()
	rec := newRecorder()
	devices := &fakeDevices{}
	var rendered []Form
	store.put(t, "c1", "u1", "Q", "blue", time.Unix(1, 0))
	notes := mapNotes{NoteRegisteringDevice: "true", NoteCPUID: "cpu", NoteVisitorID: "vis"}

	res, err := RunAction(context.Background(), actionRequest("blue", notes, nil), testAuthenticateDeps(store, rec, devices, &rendered))
	if err != nil {
		t.Fatalf("RunAction failed: %v", err)
	}
	if res.Status != StepSuccess {
		t.Fatalf("unexpected result: %+v", res)
	}
	want := deviceCall{"u1", "device-cpuvis", "cpu", "vis"}
	if len(devices.calls) != 1 || devices.calls[0] != want {
		t.Fatalf("unexpected device calls: %+v", devices.calls)
	}
	if rec.count(mBound) != 1 {
		t.Fatal("expected device bound metric")
	}

	notes[NoteRegisteringDevice] = "TRUE"
	devices.calls = nil
	if _, err := RunAction(context.Background(), actionRequest("blue", notes, nil), testAuthenticateDeps(store, rec, devices, &rendered)); err != nil {
		t.Fatalf("RunAction failed: %v", err)
	}
	if len(devices.calls) != 0 {
		t.Fatal("only the exact value true activates binding")
	}
}

func TestActionDeviceBindingFailureIsFatal(t *testing.T) {
	store := newMemStore()
	var rendered []Form
	store.put(t, "c1", "u1", "Q", "blue", time.Unix(1, 0))
	errTaken := errors.New("name taken")
	devices := &fakeDevices{err: errTaken}
	notes := mapNotes{NoteRegisteringDevice: "true", NoteDeviceName: "laptop"}
	deps := testAuthenticateDeps(store, newRecorder(), devices, &rendered)
	deps.DeviceBinding.Errors.Failed = errors.New("binding failed")

	res, err := RunAction(context.Background(), actionRequest("blue", notes, nil), deps)
	if !errors.Is(err, deps.DeviceBinding.Errors.Failed) || !errors.Is(err, errTaken) {
		t.Fatalf("expected wrapped binding failure, got %v", err)
	}
	if res.Marker != nil {
		t.Fatal("marker must not be returned when binding fails")
	}

	deps.DeviceBinding.CreateDeviceCredential = nil
	deps.DeviceBinding.Errors.Unavailable = errors.New("unavailable")
	if _, err := RunAction(context.Background(), actionRequest("blue", notes, nil), deps); !errors.Is(err, deps.DeviceBinding.Errors.Unavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestActionDeviceNameRequired(t *testing.T) {
	store := newMemStore()
	var rendered []Form
	store.put(t, "c1", "u1", "Q", "blue", time.Unix(1, 0))
	deps := testAuthenticateDeps(store, newRecorder(), &fakeDevices{}, &rendered)
	deps.DeviceBinding.Errors.NameRequired = errors.New("name required")

	_, err := RunAction(context.Background(), actionRequest("blue", mapNotes{NoteRegisteringDevice: "true"}, nil), deps)
	if !errors.Is(err, deps.DeviceBinding.Errors.NameRequired) {
		t.Fatalf("expected name required, got %v", err)
	}
}

func TestActionMalformedCredentialIsFatal(t *testing.T) {
	store := newMemStore()
	var rendered []Form
	store.records["c1"] = Credential{ID: "c1", UserID: "u1", Type: "secret-question", PublicData: []byte(`{"question":"Q"}`), SecretData: []byte(`{}`)}

	res, err := RunAction(context.Background(), actionRequest("blue", nil, nil), testAuthenticateDeps(store, newRecorder(), &fakeDevices{}, &rendered))
	if !errors.Is(err, errTestMalform) {
		t.Fatalf("expected malformed error, got %v", err)
	}
	if res.Marker != nil || len(rendered) != 0 {
		t.Fatal("malformed credential must abort without rendering")
	}
}

func TestResolveMaxAge(t *testing.T) {
	got, err := ResolveMaxAge(map[string]string{ConfigMaxAge: "  "}, time.Minute, errTestConfig)
	if err != nil || got != time.Minute {
		t.Fatalf("blank option should fall back, got %v %v", got, err)
	}
	got, err = ResolveMaxAge(nil, time.Minute, errTestConfig)
	if err != nil || got != time.Minute {
		t.Fatalf("nil options should fall back, got %v %v", got, err)
	}
}

func TestRealmBasePath(t *testing.T) {
	tests := []struct {
		base, realm, want string
	}{
		{"https://id.example.com/auth", "acme", "/auth/realms/acme"},
		{"https://id.example.com/", "acme", "/realms/acme"},
		{"", "acme", "/realms/acme"},
		{"/auth/", "my realm", "/auth/realms/my%20realm"},
	}
	for _, tt := range tests {
		got, err := RealmBasePath(tt.base, tt.realm)
		if err != nil {
			t.Fatalf("RealmBasePath(%q, %q) failed: %v", tt.base, tt.realm, err)
		}
		if got != tt.want {
			t.Fatalf("RealmBasePath(%q, %q) = %q, want %q", tt.base, tt.realm, got, tt.want)
		}
	}
	if _, err := RealmBasePath("/auth", ""); err == nil || !strings.Contains(err.Error(), "realm") {
		t.Fatalf("expected realm error, got %v", err)
	}
}
