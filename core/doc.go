// Package core contains the credential store, renewal coordinator, and
// request dispatcher contracts plus their orchestration. Adapters (HTTP
// renewal, transports, SQL stores) depend on this package; core must not
// depend on any adapter.
package core
