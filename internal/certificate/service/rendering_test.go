package service

import (
	"context"
	"errors"
	"testing"

	"github.com/smallbiznis/rewild/internal/certificate/domain"
	certificaterepository "github.com/smallbiznis/rewild/internal/certificate/repository"
	"github.com/smallbiznis/rewild/internal/config"
	"github.com/smallbiznis/rewild/internal/providers/pdf"
	"github.com/stretchr/testify/require"
)

type fakeRenderer struct {
	failFor map[string]bool
	calls   []string
}

func (f *fakeRenderer) RenderCertificate(_ context.Context, data pdf.CertificateData) ([]byte, error) {
	f.calls = append(f.calls, data.Number)
	if f.failFor[data.Number] {
		return nil, errors.New("render boom")
	}
	return []byte("%PDF-1.4 " + data.Number), nil
}

type fakeStore struct {
	objects map[string][]byte
	putErr  error
}

func (f *fakeStore) Put(_ context.Context, key, contentType string, body []byte) error {
	if f.putErr != nil {
		return f.putErr
	}
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.objects[key] = body
	return nil
}

func (f *fakeStore) PublicURL(key string) string {
	return "https://cdn.example.com/certificates/" + key
}

type fakeMailer struct {
	sent []string
}

func (f *fakeMailer) Send(_ context.Context, to []string, subject, htmlBody string) error {
	f.sent = append(f.sent, to[0])
	return nil
}

func issueTestCerts(t *testing.T) (*Service, *RenderService, *fakeRenderer, *fakeStore, *fakeMailer, []domain.Certificate) {
	t.Helper()

	db := openTestDB(t)
	svc := newTestService(t, db, nil)
	certs, err := svc.IssueForPurchase(context.Background(), testPurchase(1))
	require.NoError(t, err)

	renderer := &fakeRenderer{failFor: map[string]bool{}}
	store := &fakeStore{}
	mailer := &fakeMailer{}
	render := NewRenderService(RenderParams{
		DB:       db,
		Repo:     certificaterepository.Provide(),
		Renderer: renderer,
		Store:    store,
		Mailer:   mailer,
		Cfg: config.Config{
			VerificationURL: "https://rewild.example.com/verify",
		},
	})
	return svc, render, renderer, store, mailer, certs
}

func TestRenderPending(t *testing.T) {
	svc, render, _, store, mailer, certs := issueTestCerts(t)

	rendered := render.RenderPending(context.Background(), certs)
	require.Len(t, rendered, 2)
	for _, cert := range rendered {
		require.Equal(t, "https://cdn.example.com/certificates/"+cert.Number+".pdf", cert.PDFURL)
		require.Contains(t, store.objects, cert.Number+".pdf")
	}
	require.Len(t, mailer.sent, 2)

	// The URL is persisted, so the next pass has nothing to do.
	persisted, err := svc.ListByPurchaseID(context.Background(), certs[0].PurchaseID)
	require.NoError(t, err)
	for _, cert := range persisted {
		require.NotEmpty(t, cert.PDFURL)
	}
}

func TestRenderPendingSkipsAlreadyRendered(t *testing.T) {
	svc, render, renderer, _, _, certs := issueTestCerts(t)

	render.RenderPending(context.Background(), certs)
	firstPass := len(renderer.calls)
	require.Equal(t, 2, firstPass)

	persisted, err := svc.ListByPurchaseID(context.Background(), certs[0].PurchaseID)
	require.NoError(t, err)
	render.RenderPending(context.Background(), persisted)
	require.Equal(t, firstPass, len(renderer.calls))
}

func TestRenderPendingFailureIsIsolated(t *testing.T) {
	svc, render, renderer, _, mailer, certs := issueTestCerts(t)
	renderer.failFor[certs[0].Number] = true

	rendered := render.RenderPending(context.Background(), certs)
	require.Empty(t, rendered[0].PDFURL)
	require.NotEmpty(t, rendered[1].PDFURL)
	require.Len(t, mailer.sent, 1)

	// The failed certificate stays issued and is retried next pass.
	renderer.failFor = map[string]bool{}
	persisted, err := svc.ListByPurchaseID(context.Background(), certs[0].PurchaseID)
	require.NoError(t, err)
	rendered = render.RenderPending(context.Background(), persisted)
	require.NotEmpty(t, rendered[0].PDFURL)
	require.NotEmpty(t, rendered[1].PDFURL)
}

func TestRenderPendingStoreFailure(t *testing.T) {
	_, render, _, store, mailer, certs := issueTestCerts(t)
	store.putErr = errors.New("store down")

	rendered := render.RenderPending(context.Background(), certs)
	for _, cert := range rendered {
		require.Empty(t, cert.PDFURL)
	}
	require.Empty(t, mailer.sent)
}

func TestSweeperRunOnce(t *testing.T) {
	svc, render, renderer, _, _, certs := issueTestCerts(t)
	renderer.failFor[certs[0].Number] = true
	renderer.failFor[certs[1].Number] = true

	render.RenderPending(context.Background(), certs)

	sweeper := NewSweeper(svc.db, svc.repo, render)
	require.NoError(t, sweeper.RunOnce(context.Background()))

	// Still broken: nothing rendered yet.
	pending, err := svc.repo.ListMissingDocuments(context.Background(), svc.db, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	renderer.failFor = map[string]bool{}
	require.NoError(t, sweeper.RunOnce(context.Background()))

	pending, err = svc.repo.ListMissingDocuments(context.Background(), svc.db, 10)
	require.NoError(t, err)
	require.Empty(t, pending)

	// Nothing left: the next sweep is a no-op.
	require.NoError(t, sweeper.RunOnce(context.Background()))
}

func TestRerender(t *testing.T) {
	svc, render, renderer, _, _, certs := issueTestCerts(t)

	render.RenderPending(context.Background(), certs)
	before := len(renderer.calls)

	cert, err := render.Rerender(context.Background(), certs[0].Number)
	require.NoError(t, err)
	require.NotEmpty(t, cert.PDFURL)
	require.Equal(t, before+1, len(renderer.calls))

	_, err = render.Rerender(context.Background(), "RWC-MISSING-000000")
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Revoke(context.Background(), certs[0].Number)
	require.NoError(t, err)
	_, err = render.Rerender(context.Background(), certs[0].Number)
	require.ErrorIs(t, err, domain.ErrRevoked)
}
