/*
Package strategy is the catalog of verification methods understood by the
sign-in and sign-up flows.

Every method is a small struct carrying only the parameters it needs. The
structs are grouped by the flow step they can be used for, and each group is a
sealed interface:

  - SignInCreate: how a sign-in attempt starts (identifier, OAuth, passkey, ...)
  - SignUpCreate: how a sign-up attempt starts
  - Preparation: how a verification step is begun (send a code, open a redirect)
  - Attempt: how a verification step is completed (code, password, assertion)

Each variant maps to a wire strategy name and a form body. The bodies are plain
structs tagged for github.com/google/go-querystring, the pipeline encodes them.
Nothing in this package performs I/O.

Adding a method means adding one struct and its mapping methods:

	type MagicLink struct{ EmailAddressID string }

	func (MagicLink) Strategy() Name { return NameMagicLink }
	func (m MagicLink) FactorBody() FactorBody { ... }
*/
package strategy
