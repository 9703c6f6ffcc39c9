// Package docker runs layer dependency installs inside one-shot
// containers and tracks them with labels.
//
// Installing with the host's pip produces wheels for the host platform;
// Lambda runs on Linux. When containerized install mode is enabled, the
// layer manifest is installed inside a Lambda build image with the
// staging site-packages directory bind-mounted, so the resulting wheels
// match the target runtime regardless of the host OS.
package docker
