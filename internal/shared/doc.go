// Package shared holds code used across fluxcard packages that belongs to no
// single domain.
//
// The testutil subpackage provides:
//
//   - BufferedSlogHandler, a slog handler that captures records for assertions
//   - SampleFixture, which writes synthetic sample directories whose expected
//     fluxes and temperatures are known exactly
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    logger, handler := testutil.NewTestLogger(t)
//	    dir := testutil.WriteDefaultSample(t, t.TempDir(), "INPL2/INPL2_1")
//	    // run code against dir with logger, then inspect handler
//	}
package shared
