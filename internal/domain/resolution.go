package domain

// Resolution is what a git identity resolves to: a known account, a bot stub
// or nothing. The set of implementations is closed to this package.
type Resolution interface {
	Identity() GitIdentity
	AgreementSigned() bool
	CanContributeToSpecProject() bool
	IsBot() bool
	isResolution()
}

// KnownAccount is an identity backed by a registered account.
type KnownAccount struct {
	Git     GitIdentity
	Account Account
}

func (k KnownAccount) Identity() GitIdentity            { return k.Git }
func (k KnownAccount) AgreementSigned() bool            { return k.Account.ECA.Signed }
func (k KnownAccount) CanContributeToSpecProject() bool { return k.Account.ECA.CanContributeSpecProject }
func (KnownAccount) IsBot() bool                        { return false }
func (KnownAccount) isResolution()                      {}

// BotStub is synthesized for identities matching a bot registration. Bots are
// exempt from the agreement, so it always reports the agreement as signed.
type BotStub struct {
	Git GitIdentity
	Bot BotRegistration
}

func (b BotStub) Identity() GitIdentity         { return b.Git }
func (BotStub) AgreementSigned() bool            { return true }
func (BotStub) CanContributeToSpecProject() bool { return false }
func (BotStub) IsBot() bool                      { return true }
func (BotStub) isResolution()                    {}

// Unresolved means neither an account nor a bot matched.
type Unresolved struct {
	Git GitIdentity
}

func (u Unresolved) Identity() GitIdentity          { return u.Git }
func (Unresolved) AgreementSigned() bool            { return false }
func (Unresolved) CanContributeToSpecProject() bool { return false }
func (Unresolved) IsBot() bool                      { return false }
func (Unresolved) isResolution()                    {}
