// Package staging manages the packaging directory whose contents become
// the deployable layer archive.
//
// The staging directory is disposable: Reset deletes it entirely and
// recreates the runtime-versioned site-packages layout, guaranteeing
// that nothing from a previous run survives into the next artifact.
// CopyTree overlays the application package on top of the installed
// dependencies, and Verify asserts that every manifest requirement
// actually produced an installed entry; a build that printed "success"
// over a half-empty staging tree is the failure mode this package
// exists to prevent.
package staging
