// Licensed to Apache Software Foundation (ASF) under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. Apache Software Foundation (ASF) licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

// Package prom exports meter instruments to prometheus.
package prom

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/apache/skywalking-issueql/pkg/meter"
)

type provider struct {
	scope meter.Scope
	reg   prometheus.Registerer
}

// NewProvider returns a provider registering the instruments of scope into reg.
func NewProvider(scope meter.Scope, reg prometheus.Registerer) meter.Provider {
	return &provider{
		scope: scope,
		reg:   reg,
	}
}

func (p *provider) name(name string) string {
	return p.scope.GetNamespace() + "_" + name
}

// Counter implements meter.Provider.
func (p *provider) Counter(name string, labels ...string) meter.Counter {
	return &counter{
		vec: promauto.With(p.reg).NewCounterVec(prometheus.CounterOpts{
			Name:        p.name(name),
			Help:        p.name(name),
			ConstLabels: convertLabels(p.scope.GetLabels()),
		}, labels),
	}
}

// Gauge implements meter.Provider.
func (p *provider) Gauge(name string, labels ...string) meter.Gauge {
	return &gauge{
		vec: promauto.With(p.reg).NewGaugeVec(prometheus.GaugeOpts{
			Name:        p.name(name),
			Help:        p.name(name),
			ConstLabels: convertLabels(p.scope.GetLabels()),
		}, labels),
	}
}

// Histogram implements meter.Provider.
func (p *provider) Histogram(name string, buckets meter.Buckets, labels ...string) meter.Histogram {
	return &histogram{
		vec: promauto.With(p.reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:        p.name(name),
			Help:        p.name(name),
			ConstLabels: convertLabels(p.scope.GetLabels()),
			Buckets:     buckets,
		}, labels),
	}
}

type counter struct {
	vec *prometheus.CounterVec
}

func (c *counter) Inc(delta float64, labelValues ...string) {
	c.vec.WithLabelValues(labelValues...).Add(delta)
}

func (c *counter) Delete(labelValues ...string) bool {
	return c.vec.DeleteLabelValues(labelValues...)
}

type gauge struct {
	vec *prometheus.GaugeVec
}

func (g *gauge) Set(value float64, labelValues ...string) {
	g.vec.WithLabelValues(labelValues...).Set(value)
}

func (g *gauge) Add(delta float64, labelValues ...string) {
	g.vec.WithLabelValues(labelValues...).Add(delta)
}

func (g *gauge) Delete(labelValues ...string) bool {
	return g.vec.DeleteLabelValues(labelValues...)
}

type histogram struct {
	vec *prometheus.HistogramVec
}

func (h *histogram) Observe(value float64, labelValues ...string) {
	h.vec.WithLabelValues(labelValues...).Observe(value)
}

func (h *histogram) Delete(labelValues ...string) bool {
	return h.vec.DeleteLabelValues(labelValues...)
}

func convertLabels(labels meter.LabelPairs) prometheus.Labels {
	if labels == nil {
		return nil
	}
	return prometheus.Labels(labels)
}
