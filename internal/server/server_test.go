package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/fpang/photo-critic/internal/aspect"
	"github.com/fpang/photo-critic/internal/critique"
	"github.com/fpang/photo-critic/internal/metrics"
	"github.com/fpang/photo-critic/internal/viewer"
	"github.com/fpang/photo-critic/internal/workflow"
)

func TestMain(m *testing.M) {
	metrics.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type fakeAnalyzer struct {
	err error
}

func (f *fakeAnalyzer) AnalyzePhoto(context.Context, []byte, string) (*critique.PhotoAnalysis, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &critique.PhotoAnalysis{
		Rating:         7,
		Composition:    "Balanced",
		Lighting:       "Soft",
		Subject:        "A cat",
		OverallComment: "Charming",
		SuggestedEdits: []critique.SuggestedEdit{{Edit: "Crop"}, {Edit: "Warm"}, {Edit: "Sharpen"}},
	}, nil
}

type fakeEditor struct {
	data []byte
}

func (f *fakeEditor) EditPhoto(context.Context, []byte, string, *critique.PhotoAnalysis, aspect.Ratio) ([]byte, string, error) {
	return f.data, "image/png", nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func newTestServer(t *testing.T, analyzer *fakeAnalyzer) *httptest.Server {
	t.Helper()
	srv := New(analyzer, &fakeEditor{data: pngBytes(t, 40, 30)}, WithRunner(workflow.Inline))
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func decodeState(t *testing.T, resp *http.Response) stateResponse {
	t.Helper()
	defer resp.Body.Close()
	var st stateResponse
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	return st
}

func createSession(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/sessions", "application/json", nil)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create session status = %d, want 201", resp.StatusCode)
	}
	st := decodeState(t, resp)
	if st.SessionID == "" || st.Phase != workflow.PhaseIdle {
		t.Fatalf("new session = %+v", st)
	}
	return st.SessionID
}

func upload(t *testing.T, ts *httptest.Server, id, name string, data []byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", name)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(data)
	mw.Close()

	resp, err := http.Post(ts.URL+"/api/sessions/"+id+"/image", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	return resp
}

func post(t *testing.T, ts *httptest.Server, path string, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.URL+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, &fakeAnalyzer{})
	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestFullWorkflow(t *testing.T) {
	ts := newTestServer(t, &fakeAnalyzer{})
	id := createSession(t, ts)

	resp := upload(t, ts, id, "cat.png", pngBytes(t, 100, 100))
	st := decodeState(t, resp)
	if st.Source == nil || st.Source.Width != 100 {
		t.Fatalf("after upload: %+v", st)
	}
	if !st.CanAnalyze || st.CanEdit {
		t.Errorf("gating after upload: canAnalyze=%v canEdit=%v", st.CanAnalyze, st.CanEdit)
	}

	resp = post(t, ts, "/api/sessions/"+id+"/analyze", "")
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("analyze status = %d, want 202", resp.StatusCode)
	}
	st = decodeState(t, resp)
	if st.Phase != workflow.PhaseReady || st.Analysis == nil || st.Analysis.Rating != 7 {
		t.Fatalf("after analyze: %+v", st)
	}

	resp = post(t, ts, "/api/sessions/"+id+"/edit", "")
	st = decodeState(t, resp)
	if st.Phase != workflow.PhaseEditReady || st.Edited == nil {
		t.Fatalf("after edit: %+v", st)
	}
	if st.Viewer.Pair.EditedID != st.Edited.ID {
		t.Error("viewer should present the edited image")
	}

	dl, err := http.Get(ts.URL + "/api/sessions/" + id + "/download")
	if err != nil {
		t.Fatal(err)
	}
	got, _ := io.ReadAll(dl.Body)
	dl.Body.Close()
	if dl.StatusCode != http.StatusOK || !bytes.Equal(got, pngBytes(t, 40, 30)) {
		t.Errorf("download status = %d, bytes match = %v", dl.StatusCode, bytes.Equal(got, pngBytes(t, 40, 30)))
	}
	if cd := dl.Header.Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	editedID := st.Edited.ID
	resp = post(t, ts, "/api/sessions/"+id+"/reanalyze", "")
	st = decodeState(t, resp)
	if st.Phase != workflow.PhaseReady || st.Source == nil || st.Source.ID != editedID {
		t.Errorf("after reanalyze: phase=%s source=%+v, want edited %s as source", st.Phase, st.Source, editedID)
	}
}

func TestEditWithoutAnalysisConflicts(t *testing.T) {
	ts := newTestServer(t, &fakeAnalyzer{})
	id := createSession(t, ts)
	upload(t, ts, id, "cat.png", pngBytes(t, 10, 10)).Body.Close()

	resp := post(t, ts, "/api/sessions/"+id+"/edit", "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", resp.StatusCode)
	}
}

func TestAnalysisFailureState(t *testing.T) {
	ts := newTestServer(t, &fakeAnalyzer{err: errors.New("upstream unavailable")})
	id := createSession(t, ts)
	upload(t, ts, id, "cat.png", pngBytes(t, 10, 10)).Body.Close()

	st := decodeState(t, post(t, ts, "/api/sessions/"+id+"/analyze", ""))
	if st.Phase != workflow.PhaseAnalysisError || st.Message == "" || st.ErrorKind != workflow.ErrorKindTransport {
		t.Errorf("after failed analyze: %+v", st)
	}
	if !st.CanAnalyze {
		t.Error("analysis error should allow a retry")
	}
}

func TestUploadRejectsNonImage(t *testing.T) {
	ts := newTestServer(t, &fakeAnalyzer{})
	id := createSession(t, ts)

	resp := upload(t, ts, id, "notes.txt", []byte("just some text"))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want 415", resp.StatusCode)
	}
}

func TestUnknownSession(t *testing.T) {
	ts := newTestServer(t, &fakeAnalyzer{})
	resp, err := http.Get(ts.URL + "/api/sessions/nope/state")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestViewerEvents(t *testing.T) {
	ts := newTestServer(t, &fakeAnalyzer{})
	id := createSession(t, ts)
	upload(t, ts, id, "cat.png", pngBytes(t, 10, 10)).Body.Close()

	resp := post(t, ts, "/api/sessions/"+id+"/viewer", `{"type":"resize","bounds":{"left":0,"top":0,"width":200,"height":100}}`)
	resp.Body.Close()

	resp = post(t, ts, "/api/sessions/"+id+"/viewer", `{"type":"slider_down","x":200}`)
	var vr viewerResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if vr.Gesture.Slider != 100 || vr.Gesture.Mode != viewer.ModeSliding {
		t.Errorf("gesture = %+v, want slider 100 sliding", vr.Gesture)
	}

	resp = post(t, ts, "/api/sessions/"+id+"/viewer", `{"type":"warp"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown event status = %d, want 400", resp.StatusCode)
	}
}

func TestNewPairResetsViewer(t *testing.T) {
	ts := newTestServer(t, &fakeAnalyzer{})
	id := createSession(t, ts)
	upload(t, ts, id, "cat.png", pngBytes(t, 10, 10)).Body.Close()
	post(t, ts, "/api/sessions/"+id+"/viewer", `{"type":"zoom_in"}`).Body.Close()

	st := decodeState(t, upload(t, ts, id, "dog.png", pngBytes(t, 20, 10)))
	if st.Viewer.Gesture.Scale != 1 {
		t.Errorf("scale after new image = %v, want 1", st.Viewer.Gesture.Scale)
	}
}

func TestSessionEviction(t *testing.T) {
	store := newSessionStore(2)
	ctrl := workflow.New(&fakeAnalyzer{}, &fakeEditor{})
	first := store.create(ctrl, defaultBounds)
	store.create(ctrl, defaultBounds)
	store.create(ctrl, defaultBounds)

	if store.len() != 2 {
		t.Errorf("len = %d, want 2", store.len())
	}
	if _, ok := store.get(first.id); ok {
		t.Error("oldest session should have been evicted")
	}
}
