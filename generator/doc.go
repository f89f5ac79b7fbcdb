// Package generator resolves and runs external scaffolding generators.
//
// A generator is identified by an npm package plus a sub-generator
// selector, written "package[@constraint][:sub]":
//
//	generator-node             package generator-node, sub-generator "app"
//	generator-node:cli         sub-generator "cli"
//	@acme/generator-svc:api    scoped package
//	generator-node@^2.0.0:app  installed version must satisfy ^2.0.0
//
// # Resolution
//
// [Resolver] looks the generator up through a [Finder]. On a miss, and only
// when installation is allowed, it asks an [Installer] once and retries the
// lookup once with installation disabled. A generator that is still missing
// yields [ErrNotFound]; a failed install also matches [ErrInstallFailed].
//
// # Running
//
// [NodeRunner] runs a resolved generator in a child node process whose
// working directory is the build workspace. Questions the generator asks
// are answered by an [AnswerProvider] over a line protocol on the child's
// stdin and stdout; a question with neither an answer nor a default fails
// the run instead of waiting for input.
package generator
