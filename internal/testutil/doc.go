// Package testutil provides test fixtures and utilities.
//
// # Fake Display Server
//
// Tests that launch a display server re-execute their own test binary as
// the server. The package's TestMain hands control to RunFakeServer when
// FakeServerEnv is set:
//
//	func TestMain(m *testing.M) {
//	    if testutil.IsFakeServer() {
//	        os.Exit(testutil.RunFakeServer(os.Args[1:]))
//	    }
//	    os.Exit(m.Run())
//	}
//
// The fake server understands the same arguments as the real one
// (:N -listenfd F -displayfd F) and behaves according to its mode:
//
//	ready     report N, then run until SIGTERM
//	mismatch  report N+1, then run until SIGTERM
//	garbage   report a non-numeric line
//	silent    never report, run until SIGTERM
//	exit      exit immediately without reporting
//	stubborn  report N, then ignore SIGTERM
//
// # Test Environments
//
// NewTestEnv creates a private namespace root and a config pointing the
// server at the fake:
//
//	env := testutil.NewTestEnv(t)
//	env.UseFakeServer(t, testutil.ModeReady)
//	runner := session.New(env.Config, ...)
//
// # Fixtures
//
// Config fixtures are embedded using go:embed and loaded with
// LoadConfigFixture.
package testutil
