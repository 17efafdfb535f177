// Package mocks provides test doubles for ports interfaces.
//
// These mocks are designed to be simple, thread-safe, in-memory implementations
// suitable for unit testing. Each mock provides:
//
//   - Default behavior that returns reasonable test values
//   - Callback functions (xxxFn) for customizing behavior per test
//   - Helper methods for setting state directly
//   - Recorded calls for assertions
//
// # Usage Example
//
//	func TestComposer(t *testing.T) {
//		identity := mocks.NewIdentityResolver()
//		identity.SetHandle("1", "@alice@en.osm.town")
//
//		publisher := mocks.NewPublisher()
//		// ... run the composer, then inspect publisher.Published()
//	}
//
// # Available Mocks
//
//   - IdentityResolver: implements ports.IdentityResolver
//   - Publisher: implements ports.MediaPublisher
//   - ActivitySource: implements ports.ActivitySource
//   - AttributionSource: implements ports.ImageAttributionSource
//   - Downloader: implements ports.ImageDownloader
//   - ReportSource: implements ports.ReportSource
//   - Notifier: implements ports.Notifier
//   - Cache: implements ports.Cache
package mocks
