package config

// GitConfig controls how the backups directory is committed and pushed.
type GitConfig struct {
	Remote      string `mapstructure:"remote"`
	Message     string `mapstructure:"message"`
	AuthorName  string `mapstructure:"author_name"`
	AuthorEmail string `mapstructure:"author_email"`
	// Username/Password enable HTTPS basic auth for push
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	// SSHKeyPath enables SSH public key auth for push, takes precedence over Username
	SSHKeyPath    string `mapstructure:"ssh_key_path"`
	SSHPassphrase string `mapstructure:"ssh_passphrase"`
}
