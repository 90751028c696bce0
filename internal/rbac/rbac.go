package rbac

// Credential identifies where a GitHub token came from.
type Credential string

const (
	// CredentialSession is a user token held in a server-side session.
	CredentialSession Credential = "session"
	// CredentialStatic is the deployment token from GITHUB_TOKEN.
	CredentialStatic Credential = "static"
)

type Action string

const (
	ActionRead        Action = "read"
	ActionComment     Action = "comment"
	ActionWrite       Action = "write"
	ActionDigest      Action = "digest"
	ActionPreferences Action = "preferences"
	ActionBootstrap   Action = "bootstrap"
)

var allowed = map[Credential]map[Action]bool{
	CredentialSession: {
		ActionRead:        true,
		ActionComment:     true,
		ActionWrite:       true,
		ActionDigest:      true,
		ActionPreferences: true,
		ActionBootstrap:   true,
	},
	// The static token never edits journal entries on a user's behalf.
	CredentialStatic: {
		ActionBootstrap: true,
	},
}

func Can(credential Credential, action Action) bool {
	return allowed[credential][action]
}
