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

// Package meter declares the metrics the compiler records, independent of the exporting backend.
package meter

type (
	// Buckets are histogram bucket upper bounds.
	Buckets []float64

	// LabelPairs maps label names to values.
	LabelPairs map[string]string
)

// DefBuckets are latency buckets in seconds.
var DefBuckets = Buckets{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1}

// CountBuckets suit hit and id counts.
var CountBuckets = Buckets{0, 1, 10, 50, 100, 1000, 10000, 100000, 1000000}

// Merge returns the union of both label sets, other taking precedence.
func (p LabelPairs) Merge(other LabelPairs) LabelPairs {
	result := make(LabelPairs, len(p)+len(other))
	for k, v := range p {
		result[k] = v
	}
	for k, v := range other {
		result[k] = v
	}
	return result
}

// Provider creates instruments.
type Provider interface {
	Counter(name string, labelNames ...string) Counter
	Gauge(name string, labelNames ...string) Gauge
	Histogram(name string, buckets Buckets, labelNames ...string) Histogram
}

// Scope is the namespace and constant labels of a group of instruments.
type Scope interface {
	ConstLabels(labels LabelPairs) Scope
	SubScope(name string) Scope
	GetNamespace() string
	GetLabels() LabelPairs
}

// Instrument is a metric.
type Instrument interface {
	// Delete drops the series of labelValues.
	Delete(labelValues ...string) bool
}

// Counter only goes up.
type Counter interface {
	Instrument
	Inc(delta float64, labelValues ...string)
}

// Gauge goes up and down.
type Gauge interface {
	Instrument
	Set(value float64, labelValues ...string)
	Add(delta float64, labelValues ...string)
}

// Histogram samples observations into buckets.
type Histogram interface {
	Instrument
	Observe(value float64, labelValues ...string)
}

// ToLabelPairs zips labelNames with labelValues.
func ToLabelPairs(labelNames, labelValues []string) LabelPairs {
	labelPairs := make(LabelPairs, len(labelNames))
	for i := range labelNames {
		labelPairs[labelNames[i]] = labelValues[i]
	}
	return labelPairs
}

// OrNoop returns p, or a provider whose instruments discard everything when p is nil.
func OrNoop(p Provider) Provider {
	if p == nil {
		return noop{}
	}
	return p
}

type noop struct{}

func (noop) Counter(string, ...string) Counter              { return noopInstrument{} }
func (noop) Gauge(string, ...string) Gauge                  { return noopInstrument{} }
func (noop) Histogram(string, Buckets, ...string) Histogram { return noopInstrument{} }
func (noopInstrument) Delete(...string) bool                { return false }
func (noopInstrument) Inc(float64, ...string)               {}
func (noopInstrument) Set(float64, ...string)               {}
func (noopInstrument) Add(float64, ...string)               {}
func (noopInstrument) Observe(float64, ...string)           {}

type noopInstrument struct{}
