// Package radarr queues RescanMovie commands so Radarr notices replaced
// files, then polls the command until Radarr reports it finished.
package radarr
