// SPDX-License-Identifier: EPL-2.0

// Package config loads the YAML configuration of the codecbench command.
//
// Example file:
//
//	codec:
//	  backend: opus
//	  sample_rate: 16000
//	  ratios: [8, 5, 4, 2]
//	  target_bandwidths: [1, 1.5, 2, 4, 6, 12]
//	checkpoint:
//	  path: encodec.safetensors
//	  prefix_length: 7
//	batch:
//	  input: ./in
//	  output: ./out
//	  bandwidth: 6
//	  workers: 4
//	  timeout: 30s
//	logging:
//	  level: info
//	  format: text
//	  output: stderr
//	metrics:
//	  file: /var/lib/node_exporter/codecbench.prom
package config
