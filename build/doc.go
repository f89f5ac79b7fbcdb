// Package build runs one template build: resolve the generator, run it in
// a private workspace, package the workspace and publish the archive to
// the artifact store.
//
// Workspaces are created fresh for each attempt and removed on every exit
// path. A removal failure is logged and never changes the build result.
// The archive is written through [cache.Store.Create], so a failed or
// interrupted build never leaves a visible artifact.
package build
