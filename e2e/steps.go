package e2e

import (
	"context"
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

// RegisterSteps registers all step definitions. current returns the context
// of the running scenario.
func RegisterSteps(ctx *godog.ScenarioContext, current func() *TestContext) {
	steps := &tierSteps{current: current}

	// Background steps
	ctx.Step(`^the tier gateway is running with service "([^"]*)"$`, steps.gatewayIsRunning)

	// Lookup service setup
	ctx.Step(`^the lookup service maps partner "([^"]*)" and service "([^"]*)" to the tier backend$`, steps.lookupMaps)
	ctx.Step(`^the lookup service answers partner "([^"]*)" with a malformed body$`, steps.lookupMalformed)
	ctx.Step(`^the lookup service is down$`, steps.lookupDown)

	// Request steps
	ctx.Step(`^partner "([^"]*)" posts to "([^"]*)"$`, steps.partnerPosts)
	ctx.Step(`^I post to "([^"]*)" without a partner header$`, steps.postWithoutPartner)
	ctx.Step(`^I send the cache clear header to "([^"]*)"$`, steps.sendCacheClear)

	// Assertion steps
	ctx.Step(`^the response status should be (\d+)$`, steps.responseStatusShouldBe)
	ctx.Step(`^the response should contain "([^"]*)"$`, steps.responseShouldContain)
	ctx.Step(`^the response should come from the "([^"]*)" backend$`, steps.responseFromBackend)
	ctx.Step(`^the lookup service should have been called (\d+) times?$`, steps.lookupCalled)
	ctx.Step(`^the "([^"]*)" backend should have received (\d+) requests?$`, steps.backendReceived)
}

type tierSteps struct {
	current func() *TestContext
}

func (s *tierSteps) gatewayIsRunning(_ context.Context, serviceName string) error {
	return s.current().Start(serviceName)
}

func (s *tierSteps) lookupMaps(_ context.Context, partner, serviceName string) error {
	s.current().lookup.update(func(l *lookupStub) {
		l.mapped[partner+"/"+serviceName] = true
	})
	return nil
}

func (s *tierSteps) lookupMalformed(_ context.Context, partner string) error {
	s.current().lookup.update(func(l *lookupStub) {
		l.malformed[partner] = true
	})
	return nil
}

func (s *tierSteps) lookupDown(context.Context) error {
	s.current().lookup.update(func(l *lookupStub) {
		l.down = true
	})
	return nil
}

func (s *tierSteps) partnerPosts(_ context.Context, partner, path string) error {
	return s.current().POSTWithHeaders(path, map[string]string{partnerHeader: partner})
}

func (s *tierSteps) postWithoutPartner(_ context.Context, path string) error {
	return s.current().POSTWithHeaders(path, nil)
}

func (s *tierSteps) sendCacheClear(_ context.Context, path string) error {
	return s.current().POSTWithHeaders(path, map[string]string{cacheHeader: "1"})
}

func (s *tierSteps) responseStatusShouldBe(_ context.Context, expected int) error {
	tc := s.current()
	if tc.LastResponse == nil {
		return fmt.Errorf("no response received")
	}
	if tc.LastResponse.StatusCode != expected {
		return fmt.Errorf("expected status %d, got %d: %s", expected, tc.LastResponse.StatusCode, tc.LastResponseBody)
	}
	return nil
}

func (s *tierSteps) responseShouldContain(_ context.Context, text string) error {
	body := string(s.current().LastResponseBody)
	if !strings.Contains(body, text) {
		return fmt.Errorf("expected response to contain %q, got %q", text, body)
	}
	return nil
}

func (s *tierSteps) responseFromBackend(_ context.Context, name string) error {
	body := string(s.current().LastResponseBody)
	if body != name {
		return fmt.Errorf("expected response from %q backend, got %q", name, body)
	}
	return nil
}

func (s *tierSteps) lookupCalled(_ context.Context, expected int) error {
	if got := s.current().lookup.callCount(); got != expected {
		return fmt.Errorf("expected %d lookup calls, got %d", expected, got)
	}
	return nil
}

func (s *tierSteps) backendReceived(_ context.Context, name string, expected int) error {
	b, ok := s.current().backends[name]
	if !ok {
		return fmt.Errorf("unknown backend %q", name)
	}
	if got := b.count(); got != expected {
		return fmt.Errorf("expected %d requests on %q backend, got %d", expected, name, got)
	}
	return nil
}
