// Package secret resolves secret-bearing configuration values.
//
// A value is first expanded strictly against the environment: ${VAR} must
// be set, $$ is a literal dollar. The result may then name a secret
// through a reference of the form
//
//	secretref:<provider>:<ref>
//
// either as the whole value or inline ("Bearer secretref:env:TOKEN").
// Two providers are built in: "env" reads an environment variable and
// "file" reads a file, such as a mounted Docker or Kubernetes secret.
//
//	r := secret.NewDefaultResolver(true)
//	key, err := r.ResolveValue(ctx, "secretref:file:/run/secrets/dolibarr_api_key")
package secret
